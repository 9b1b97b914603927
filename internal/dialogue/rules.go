// Package dialogue implements the keyword-driven scheme advisor replies.
//
// Input is lowercased and checked against an ordered rule table. The first
// rule with a matching keyword produces the reply; the fallback rule always
// matches. Respond never fails.
package dialogue

import (
	"fmt"
	"strings"

	"github.com/terra-clan/scheme-connect/internal/matcher"
	"github.com/terra-clan/scheme-connect/internal/models"
)

// Intent names the rule that produced a reply
type Intent string

const (
	IntentRecommend   Intent = "recommend"
	IntentEligibility Intent = "eligibility"
	IntentApply       Intent = "apply"
	IntentProfile     Intent = "profile"
	IntentStudent     Intent = "student"
	IntentBusiness    Intent = "business"
	IntentFarmer      Intent = "farmer"
	IntentFallback    Intent = "fallback"
	IntentGreeting    Intent = "greeting"
)

// MaxSuggestions bounds the follow-up prompts on every reply
const MaxSuggestions = 4

// Reply is the generated bot turn. ProfileUpdate is non-nil when the
// reply changes the profile; the caller merges it before showing Content.
type Reply struct {
	Intent        Intent
	Content       string
	Suggestions   []string
	ProfileUpdate *models.ProfileUpdate
}

type handler func(profile models.UserProfile, records []models.Scheme) Reply

type rule struct {
	intent   Intent
	keywords []string
	handle   handler
}

// rules is evaluated in order, first match wins
var rules = []rule{
	{IntentRecommend, []string{"find", "recommend", "suggest"}, recommend},
	{IntentEligibility, []string{"eligibility", "eligible"}, eligibility},
	{IntentApply, []string{"apply", "application"}, apply},
	{IntentProfile, []string{"profile", "update"}, profilePrompt},
	{IntentStudent, []string{"student"}, student},
	{IntentBusiness, []string{"business"}, business},
	{IntentFarmer, []string{"farmer", "agriculture"}, farmer},
}

// Respond maps user input to a reply for the given profile and catalog
func Respond(input string, profile models.UserProfile, records []models.Scheme) Reply {
	text := strings.ToLower(input)

	for _, r := range rules {
		if matchesAny(text, r.keywords) {
			reply := r.handle(profile, records)
			reply.Intent = r.intent
			return reply
		}
	}

	reply := fallback(profile, records)
	reply.Intent = IntentFallback
	return reply
}

// Greeting is the first bot message of every conversation
func Greeting() Reply {
	return Reply{
		Intent:  IntentGreeting,
		Content: "Hello! I'm your personal scheme advisor. I can help you find the perfect grants and loans based on your profile. What would you like to know?",
		Suggestions: []string{
			"Find schemes for me",
			"Check eligibility",
			"Update my profile",
			"How to apply?",
		},
	}
}

func matchesAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

func recommend(profile models.UserProfile, records []models.Scheme) Reply {
	found := matcher.Recommend(records, profile, matcher.DefaultLimit)
	if len(found) == 0 {
		return Reply{
			Content:     "I couldn't find specific schemes matching your profile. Let me help you update your profile to get better recommendations.",
			Suggestions: []string{"Update profile", "Browse all schemes", "What information do you need?"},
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Based on your profile, I found %d schemes that might interest you:\n\n", len(found))
	for i, sc := range found {
		fmt.Fprintf(&b, "%d. **%s**\n   Amount: %s\n   Category: %s\n   Success Rate: %d%%\n\n",
			i+1, sc.Title, sc.Amount, sc.Category, sc.SuccessRate)
	}

	return Reply{
		Content:     b.String(),
		Suggestions: []string{"Tell me more about these", "Check eligibility", "How to apply?", "Find more schemes"},
	}
}

var missingPrompts = map[models.ProfileField]string{
	models.FieldAge:      "What's your age? ",
	models.FieldIncome:   "What's your annual income range? ",
	models.FieldCategory: "What category do you belong to (Student/Business/Farmer/etc.)? ",
}

func eligibility(profile models.UserProfile, records []models.Scheme) Reply {
	res := matcher.CheckEligibility(records, profile)
	if !res.Ready {
		var b strings.Builder
		b.WriteString("To check eligibility, I need some information about you. ")
		for _, field := range res.Missing {
			b.WriteString(missingPrompts[field])
		}
		return Reply{
			Content:     b.String(),
			Suggestions: []string{"I'm a student", "I'm a business owner", "I'm a farmer", "Update full profile"},
		}
	}

	return Reply{
		Content:     fmt.Sprintf("Based on your profile, you're eligible for %d schemes. Would you like me to show them?", len(res.Eligible)),
		Suggestions: []string{"Show eligible schemes", "Update profile", "How to apply?"},
	}
}

func apply(models.UserProfile, []models.Scheme) Reply {
	return Reply{
		Content: "Here's the general application process:\n\n" +
			"1. **Choose a Scheme** - Select the scheme that fits your needs\n" +
			"2. **Check Eligibility** - Verify you meet all criteria\n" +
			"3. **Gather Documents** - Prepare required documentation\n" +
			"4. **Submit Application** - Fill out the online form\n" +
			"5. **Track Status** - Monitor your application progress\n\n" +
			"Would you like help with any specific step?",
		Suggestions: []string{"Help me choose", "What documents needed?", "Track my application", "Contact support"},
	}
}

func profilePrompt(models.UserProfile, []models.Scheme) Reply {
	return Reply{
		Content:     "I can help you update your profile for better recommendations. What would you like to update?",
		Suggestions: []string{"Age and income", "Education level", "Business type", "Location"},
	}
}

func student(models.UserProfile, []models.Scheme) Reply {
	return Reply{
		Content:     "Great! I've updated your profile as a Student. This will help me recommend education-related schemes and scholarships.",
		Suggestions: []string{"Find education schemes", "Check scholarship eligibility", "Update more details"},
		ProfileUpdate: &models.ProfileUpdate{
			Category:  models.StringPtr("Student"),
			Interests: []string{"Education"},
		},
	}
}

func business(models.UserProfile, []models.Scheme) Reply {
	return Reply{
		Content:     "Perfect! I've marked you as a Business owner. I can now recommend startup loans, business grants, and entrepreneurship schemes.",
		Suggestions: []string{"Find business loans", "Startup schemes", "MSME benefits"},
		ProfileUpdate: &models.ProfileUpdate{
			Category:  models.StringPtr("Business"),
			Interests: []string{"Business", "Entrepreneurship"},
		},
	}
}

func farmer(models.UserProfile, []models.Scheme) Reply {
	return Reply{
		Content:     "Excellent! I've updated your profile as a Farmer. I can help you find agricultural loans, crop insurance, and farming subsidies.",
		Suggestions: []string{"Agricultural loans", "Crop insurance", "Farming subsidies"},
		ProfileUpdate: &models.ProfileUpdate{
			Category:  models.StringPtr("Farmer"),
			Interests: []string{"Agriculture"},
		},
	}
}

func fallback(models.UserProfile, []models.Scheme) Reply {
	return Reply{
		Content: "I understand you're looking for information. I can help you with:\n\n" +
			"• Finding suitable schemes and grants\n" +
			"• Checking eligibility criteria\n" +
			"• Application process guidance\n" +
			"• Updating your profile for better matches\n\n" +
			"What would you like to explore?",
		Suggestions: []string{"Find schemes for me", "Check eligibility", "How to apply?", "Update profile"},
	}
}
