package script

import "strings"

// ProjectType classifies what kind of script a concept calls for.
type ProjectType string

const (
	ProjectTypeStory      ProjectType = "story"
	ProjectTypeCommercial ProjectType = "commercial"
)

// commercialKeywords mark a concept as product-centric. Any single
// match classifies the concept as a commercial.
var commercialKeywords = []string{
	"advert",
	"advertisement",
	"commercial",
	"promo",
	"promotional",
	"product",
	"sale",
	"buy now",
	"features",
}

// DetectProjectType infers whether a concept describes a single
// character story or a product commercial.
func DetectProjectType(concept string) ProjectType {
	lower := strings.ToLower(concept)
	for _, kw := range commercialKeywords {
		if strings.Contains(lower, kw) {
			return ProjectTypeCommercial
		}
	}
	return ProjectTypeStory
}
