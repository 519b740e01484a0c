package linkaudit

import (
	"fmt"

	"github.com/Bahjat/link-audit/internal/model"
)

// validationPolicy parameterizes the single validation strategy shared by
// every validated category. Only HTTP 200 counts as valid.
type validationPolicy struct {
	// forceInvalid reports reachable links as invalid anyway.
	forceInvalid bool
	errorPrefix  string
}

func (vp *validationPolicy) success(href string) model.ValidationResult {
	result := model.ValidationResult{
		Valid:       true,
		Status:      200,
		ResolvedURL: &href,
	}
	if vp.forceInvalid {
		msg := vp.errorPrefix + ": path is reachable but looks like a misspelled contact path"
		result.Valid = false
		result.Error = &msg
	}
	return result
}

func (vp *validationPolicy) redirect(status int, location string) model.ValidationResult {
	msg := fmt.Sprintf("%s: redirected with status %d", vp.errorPrefix, status)
	result := model.ValidationResult{
		Status:     status,
		Redirected: true,
		Error:      &msg,
	}
	if location != "" {
		result.ResolvedURL = &location
	}
	return result
}

func (vp *validationPolicy) failure(status int, reason string) model.ValidationResult {
	msg := vp.errorPrefix + ": " + reason
	return model.ValidationResult{Status: status, Error: &msg}
}

// strategy is what the audit does with links of one category.
type strategy struct {
	validation *validationPolicy
	checker    checker
}

func validated(prefix string) *validationPolicy {
	return &validationPolicy{errorPrefix: prefix}
}

var strategies = map[model.Category]strategy{
	model.CategoryExternal: {
		validation: validated("external link check failed"),
		checker:    reachabilityChecker{},
	},
	model.CategoryWrongContact: {
		validation: &validationPolicy{forceInvalid: true, errorPrefix: "wrong contact path"},
	},
	model.CategoryContact: {
		validation: validated("contact page check failed"),
		checker:    reachabilityChecker{},
	},
	model.CategoryCruiseShip: {
		validation: validated("cruise ship check failed"),
		checker:    shipChecker{},
	},
	model.CategoryCruiseWithID: {
		validation: validated("cruise check failed"),
		checker:    cruisePriceChecker{},
	},
	model.CategorySpecialPage: {
		validation: validated("special page check failed"),
	},
	model.CategoryArticle: {
		validation: validated("article check failed"),
	},
	model.CategoryStory: {
		validation: validated("story check failed"),
		checker:    reachabilityChecker{},
	},
	model.CategoryStories: {
		validation: validated("stories page check failed"),
	},
	model.CategoryOperatorWithID: {
		validation: validated("operator check failed"),
	},
	model.CategoryTourWithID: {
		validation: validated("tour check failed"),
		checker:    tourPriceChecker{},
	},
	model.CategoryTourActivity: {
		validation: validated("tour activity check failed"),
		checker:    activityChecker{},
	},
}

var destinationStrategy = strategy{validation: validated("destination page check failed")}

// strategyFor returns the validation and availability strategy of c. Other
// and invalid-url links are neither validated nor checked.
func strategyFor(c model.Category) strategy {
	if c.IsDestination() {
		return destinationStrategy
	}
	return strategies[c]
}
