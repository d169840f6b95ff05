package enums

import "fmt"

// AttachmentCategory tags what kind of document an order attachment holds.
type AttachmentCategory string

const (
	AttachmentCategoryOrderDocuments AttachmentCategory = "order_documents"
	AttachmentCategoryTechnicalDocs  AttachmentCategory = "technical_docs"
	AttachmentCategoryPhotos         AttachmentCategory = "photos"
	AttachmentCategoryOther          AttachmentCategory = "other"
)

var validAttachmentCategories = []AttachmentCategory{
	AttachmentCategoryOrderDocuments,
	AttachmentCategoryTechnicalDocs,
	AttachmentCategoryPhotos,
	AttachmentCategoryOther,
}

func (a AttachmentCategory) String() string {
	return string(a)
}

func (a AttachmentCategory) IsValid() bool {
	for _, candidate := range validAttachmentCategories {
		if candidate == a {
			return true
		}
	}
	return false
}

func ParseAttachmentCategory(value string) (AttachmentCategory, error) {
	for _, candidate := range validAttachmentCategories {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid attachment category %q", value)
}
