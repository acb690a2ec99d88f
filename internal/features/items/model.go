package items

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/xyz-asif/lostfound/internal/features/auth"
	"github.com/xyz-asif/lostfound/internal/pkg/access"
)

type Category string

const (
	CategoryElectronics Category = "electronics"
	CategoryDocuments   Category = "documents"
	CategoryJewelry     Category = "jewelry"
	CategoryClothing    Category = "clothing"
	CategoryAccessories Category = "accessories"
	CategoryBags        Category = "bags"
	CategoryKeys        Category = "keys"
	CategoryWallets     Category = "wallets"
	CategoryPets        Category = "pets"
	CategoryOther       Category = "other"
)

// Categories lists every accepted category in display order.
var Categories = []Category{
	CategoryElectronics, CategoryDocuments, CategoryJewelry, CategoryClothing, CategoryAccessories,
	CategoryBags, CategoryKeys, CategoryWallets, CategoryPets, CategoryOther,
}

type ItemType string

const (
	TypeLost  ItemType = "lost"
	TypeFound ItemType = "found"
)

type Status string

const (
	StatusActive   Status = "active"
	StatusClaimed  Status = "claimed"
	StatusReturned Status = "returned"
	StatusExpired  Status = "expired"
)

func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusClaimed, StatusReturned, StatusExpired:
		return true
	}
	return false
}

type ClaimStatus string

const (
	ClaimPending  ClaimStatus = "pending"
	ClaimApproved ClaimStatus = "approved"
	ClaimRejected ClaimStatus = "rejected"
)

func (s ClaimStatus) Valid() bool {
	switch s {
	case ClaimPending, ClaimApproved, ClaimRejected:
		return true
	}
	return false
}

const (
	MaxClaimNotes  = 500
	MaxImages      = 5
	MaxDocuments   = 5
	AutoRejectNote = "Automatically rejected: another claim was approved for this item"
)

type Image struct {
	URL      string `bson:"url" json:"url" binding:"required,url"`
	PublicID string `bson:"publicId" json:"publicId" binding:"required"`
}

type ContactInfo struct {
	Phone           string `bson:"phone,omitempty" json:"phone,omitempty"`
	Email           string `bson:"email,omitempty" json:"email,omitempty"`
	PreferredMethod string `bson:"preferredMethod,omitempty" json:"preferredMethod,omitempty"`
}

// Document is a verification file attached to a claim
type Document struct {
	URL      string `bson:"url" json:"url" binding:"required,url"`
	Name     string `bson:"name" json:"name" binding:"required,max=255"`
	Type     string `bson:"type" json:"type" binding:"max=100"`
	Size     int64  `bson:"size" json:"size" binding:"min=0"`
	PublicID string `bson:"publicId" json:"publicId" binding:"required"`
}

// Claim is an ownership assertion embedded in its item
type Claim struct {
	ID                    primitive.ObjectID  `bson:"_id" json:"id"`
	Claimant              primitive.ObjectID  `bson:"claimant" json:"claimantId"`
	VerificationDocuments []Document          `bson:"verificationDocuments" json:"verificationDocuments"`
	Notes                 string              `bson:"notes,omitempty" json:"notes,omitempty"`
	Status                ClaimStatus         `bson:"status" json:"status"`
	ReviewNotes           string              `bson:"reviewNotes,omitempty" json:"reviewNotes,omitempty"`
	ReviewedBy            *primitive.ObjectID `bson:"reviewedBy,omitempty" json:"reviewedBy,omitempty"`
	ReviewedAt            *time.Time          `bson:"reviewedAt,omitempty" json:"reviewedAt,omitempty"`
	CreatedAt             time.Time           `bson:"createdAt" json:"createdAt"`
	UpdatedAt             time.Time           `bson:"updatedAt" json:"updatedAt"`

	ClaimantInfo *auth.Summary `bson:"-" json:"claimant,omitempty"`
}

// Item is a reported lost or found object together with its claims
type Item struct {
	ID                 primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	Title              string              `bson:"title" json:"title"`
	Description        string              `bson:"description" json:"description"`
	Category           Category            `bson:"category" json:"category"`
	Type               ItemType            `bson:"type" json:"type"`
	Status             Status              `bson:"status" json:"status"`
	Location           string              `bson:"location" json:"location"`
	District           string              `bson:"district,omitempty" json:"district,omitempty"`
	Date               time.Time           `bson:"date" json:"date"`
	Images             []Image             `bson:"images" json:"images"`
	ContactInfo        ContactInfo         `bson:"contactInfo" json:"contactInfo"`
	ReportedBy         primitive.ObjectID  `bson:"reportedBy" json:"reportedById"`
	ExpiryDate         time.Time           `bson:"expiryDate" json:"expiryDate"`
	Claims             []Claim             `bson:"claims" json:"claims"`
	HandedOverToPolice bool                `bson:"handedOverToPolice" json:"handedOverToPolice"`
	PoliceReportNumber string              `bson:"policeReportNumber,omitempty" json:"policeReportNumber,omitempty"`
	HandedOverAt       *time.Time          `bson:"handedOverAt,omitempty" json:"handedOverAt,omitempty"`
	ReturnedTo         *primitive.ObjectID `bson:"returnedTo,omitempty" json:"returnedTo,omitempty"`
	ReturnedAt         *time.Time          `bson:"returnedAt,omitempty" json:"returnedAt,omitempty"`
	Version            int64               `bson:"version" json:"-"`
	CreatedAt          time.Time           `bson:"createdAt" json:"createdAt"`
	UpdatedAt          time.Time           `bson:"updatedAt" json:"updatedAt"`

	Reporter   *auth.Summary `bson:"-" json:"reportedBy,omitempty"`
	ClaimCount int           `bson:"-" json:"claimCount"`
}

// Resource is the access-control view of the item.
func (i *Item) Resource() access.Resource {
	return access.Resource{Owner: i.ReportedBy, Location: i.Location}
}

type CreateItemRequest struct {
	Title       string      `json:"title" binding:"required,min=3,max=100"`
	Description string      `json:"description" binding:"required,min=10,max=1000"`
	Category    Category    `json:"category" binding:"required,oneof=electronics documents jewelry clothing accessories bags keys wallets pets other"`
	Type        ItemType    `json:"type" binding:"required,oneof=lost found"`
	Location    string      `json:"location" binding:"required,max=200"`
	District    string      `json:"district" binding:"max=100"`
	Date        time.Time   `json:"date" binding:"required"`
	Images      []Image     `json:"images" binding:"max=5,dive"`
	ContactInfo ContactInfo `json:"contactInfo"`
}

type UpdateItemRequest struct {
	Title       *string      `json:"title" binding:"omitempty,min=3,max=100"`
	Description *string      `json:"description" binding:"omitempty,min=10,max=1000"`
	Category    *Category    `json:"category" binding:"omitempty,oneof=electronics documents jewelry clothing accessories bags keys wallets pets other"`
	Location    *string      `json:"location" binding:"omitempty,max=200"`
	District    *string      `json:"district" binding:"omitempty,max=100"`
	Date        *time.Time   `json:"date"`
	Images      *[]Image     `json:"images" binding:"omitempty,max=5,dive"`
	ContactInfo *ContactInfo `json:"contactInfo"`
}

type HandoverRequest struct {
	PoliceReportNumber string `json:"policeReportNumber" binding:"required,max=100"`
}

type SubmitClaimRequest struct {
	VerificationDocuments []Document `json:"verificationDocuments" binding:"max=5,dive"`
	Notes                 string     `json:"notes" binding:"max=500"`
}

type UpdateClaimStatusRequest struct {
	Status ClaimStatus `json:"status" binding:"required"`
	Notes  string      `json:"notes" binding:"max=500"`
}

type MarkReturnedRequest struct {
	ClaimID string `json:"claimId"`
}

type OverrideStatusRequest struct {
	Status Status `json:"status" binding:"required"`
	Reason string `json:"reason" binding:"max=500"`
}
