package model

import (
	"strconv"
	"strings"
)

// Category is one label of the fixed URL-shape taxonomy.
type Category string

const (
	CategoryExternal       Category = "external-link"
	CategoryWrongContact   Category = "wrong-contact-path"
	CategoryContact        Category = "contact-page"
	CategoryCruiseShip     Category = "cruise-ship"
	CategoryCruiseWithID   Category = "cruise-with-id"
	CategorySpecialPage    Category = "destination-special-page"
	CategoryArticle        Category = "multi-level/articles/article-name"
	CategoryStory          Category = "multi-level/stories/story-name"
	CategoryStories        Category = "multi-level/stories"
	CategoryOperatorWithID Category = "operator-with-id"
	CategoryTourWithID     Category = "tour-with-id"
	CategoryTourActivity   Category = "tour-activity"
	CategoryOther          Category = "other"
	CategoryInvalidURL     Category = "invalid-url"

	destinationPrefix = "multi-level/destination-"
)

// DestinationCategory returns the multi-level destination label for a path
// with n segments.
func DestinationCategory(n int) Category {
	return Category(destinationPrefix + strconv.Itoa(n))
}

// IsDestination reports whether c is a multi-level/destination-N label.
func (c Category) IsDestination() bool {
	return strings.HasPrefix(string(c), destinationPrefix)
}
