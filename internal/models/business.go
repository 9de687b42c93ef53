package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Quotas enforced by the business validators.
const (
	MaxBusinessesPerAccount = 1
	MaxProductsPerBusiness  = 5
	MaxServicesPerBusiness  = 5
)

// Business is a directory listing owned by one account.
type Business struct {
	BaseModel
	AccountID    uuid.UUID       `gorm:"type:uuid;not null;index" json:"account_id"`
	Name         string          `gorm:"size:255;not null" json:"business_name"`
	Description  string          `gorm:"type:text" json:"description"`
	Logo         string          `gorm:"size:500" json:"logo"`
	Banner       string          `gorm:"size:500" json:"image"`
	Phone        string          `gorm:"size:32" json:"phone"`
	Email        string          `gorm:"size:255" json:"email"`
	Address      string          `gorm:"type:text" json:"address"`
	Website      string          `gorm:"size:500" json:"website"`
	FacebookURL  string          `gorm:"size:500" json:"facebook_url"`
	InstagramURL string          `gorm:"size:500" json:"instagram_url"`
	TwitterURL   string          `gorm:"size:500" json:"twitter_url"`
	LinkedinURL  string          `gorm:"size:500" json:"linkedin_url"`
	YoutubeURL   string          `gorm:"size:500" json:"youtube_url"`
	IsVerified   bool            `gorm:"not null" json:"is_verified"`
	IsActive     bool            `gorm:"not null" json:"is_active"`
	Rating       decimal.Decimal `gorm:"type:decimal(3,2);not null;default:0" json:"rating"`
	ReviewCount  int             `gorm:"not null;default:0" json:"review_count"`
	ViewCount    int             `gorm:"not null;default:0" json:"view_count"`
	Products     []Product       `json:"products,omitempty"`
	Services     []Service       `json:"services,omitempty"`
}

// SocialLinks returns the non-empty social profile URLs.
func (b Business) SocialLinks() []string {
	var links []string
	for _, link := range []string{b.FacebookURL, b.InstagramURL, b.TwitterURL, b.LinkedinURL, b.YoutubeURL} {
		if link != "" {
			links = append(links, link)
		}
	}
	return links
}

// HasSocialLinks reports whether any social link is set.
func (b Business) HasSocialLinks() bool {
	return len(b.SocialLinks()) > 0
}

type Product struct {
	BaseModel
	BusinessID  uuid.UUID       `gorm:"type:uuid;not null;index" json:"business_id"`
	Name        string          `gorm:"size:255;not null" json:"name"`
	Description string          `gorm:"type:text" json:"description"`
	Price       decimal.Decimal `gorm:"type:decimal(10,2)" json:"price"`
	Currency    string          `gorm:"size:3" json:"currency"`
	InStock     bool            `gorm:"not null" json:"in_stock"`
	IsActive    bool            `gorm:"not null" json:"is_active"`
}

type Service struct {
	BaseModel
	BusinessID  uuid.UUID `gorm:"type:uuid;not null;index" json:"business_id"`
	Name        string    `gorm:"size:255;not null" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	PriceRange  string    `gorm:"size:100" json:"price_range"`
	Duration    string    `gorm:"size:100" json:"duration"`
	IsActive    bool      `gorm:"not null" json:"is_active"`
}

// Review is a member's rating of a business.
type Review struct {
	BaseModel
	BusinessID uuid.UUID `gorm:"type:uuid;not null;index" json:"business_id"`
	AccountID  uuid.UUID `gorm:"type:uuid;not null;index" json:"account_id"`
	Rating     int       `gorm:"not null" json:"rating"`
	Text       string    `gorm:"type:text" json:"text"`
}

// BusinessSnapshot is the state campaign predicates are evaluated against.
type BusinessSnapshot struct {
	Business       Business
	Owner          Account
	ActiveProducts int64
	ActiveServices int64
	Products       int64
	Services       int64
}
