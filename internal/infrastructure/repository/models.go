package repository

import (
	"time"

	"gorm.io/gorm"
)

// Recipe 食譜資料表
type Recipe struct {
	ID          uint    `gorm:"primaryKey"`
	Name        string  `gorm:"size:200;not null"`
	Description string  `gorm:"type:text"`
	Category    string  `gorm:"size:100;index"`
	Tags        string  `gorm:"size:500"` // 逗號分隔
	CookingTime int     `gorm:"not null;default:0"`
	Servings    int     `gorm:"not null"`
	CreatorID   uint    `gorm:"not null;index"`
	Rating      float64 `gorm:"not null;default:0;index"`
	RatingCount int     `gorm:"not null;default:0"`
	CreatedAt   time.Time
	UpdatedAt   time.Time

	Ingredients   []Ingredient   `gorm:"constraint:OnDelete:CASCADE"`
	NutritionInfo *NutritionInfo `gorm:"constraint:OnDelete:CASCADE"`
	Ratings       []Rating       `gorm:"constraint:OnDelete:CASCADE"`
	Timers        []CookingTimer `gorm:"constraint:OnDelete:CASCADE"`
}

// Ingredient 食譜食材，Position 保留輸入順序
type Ingredient struct {
	ID       uint    `gorm:"primaryKey"`
	RecipeID uint    `gorm:"not null;index"`
	Position int     `gorm:"not null"`
	Name     string  `gorm:"size:200;not null"`
	Quantity float64 `gorm:"not null"`
	Unit     string  `gorm:"size:50"`
}

// NutritionInfo 每份營養資訊，與食譜一對一
type NutritionInfo struct {
	ID          uint `gorm:"primaryKey"`
	RecipeID    uint `gorm:"not null;uniqueIndex"`
	Calories    float64
	Protein     float64
	Carbs       float64
	Fats        float64
	PortionSize float64
	Unknown     bool `gorm:"not null;default:false"`
}

// Rating 使用者評分，(recipe_id, user_id) 唯一
type Rating struct {
	ID        uint `gorm:"primaryKey"`
	RecipeID  uint `gorm:"not null;uniqueIndex:idx_ratings_recipe_user"`
	UserID    uint `gorm:"not null;uniqueIndex:idx_ratings_recipe_user"`
	Score     int  `gorm:"not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CookingTimer 食譜步驟計時器定義
type CookingTimer struct {
	ID         uint   `gorm:"primaryKey"`
	RecipeID   uint   `gorm:"not null;index"`
	StepNumber int    `gorm:"not null"`
	Duration   int    `gorm:"not null"` // 秒
	Label      string `gorm:"size:200"`
}

// AutoMigrate 建立或更新資料表
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&Recipe{},
		&Ingredient{},
		&NutritionInfo{},
		&Rating{},
		&CookingTimer{},
	)
}
