package dialogue

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terra-clan/scheme-connect/internal/catalog"
	"github.com/terra-clan/scheme-connect/internal/models"
)

func seedCatalog(t *testing.T) []models.Scheme {
	t.Helper()
	seed, err := catalog.DefaultSeed()
	require.NoError(t, err)
	return seed
}

func TestRespond_Intents(t *testing.T) {
	records := seedCatalog(t)

	tests := []struct {
		input string
		want  Intent
	}{
		{"Find me a scheme", IntentRecommend},
		{"can you RECOMMEND something", IntentRecommend},
		{"suggest a loan for my business", IntentRecommend},
		{"am I eligible?", IntentEligibility},
		{"check eligibility", IntentEligibility},
		{"how to apply?", IntentApply},
		{"application status", IntentApply},
		{"update my profile", IntentProfile},
		{"I'm a student", IntentStudent},
		{"I run a business", IntentBusiness},
		{"I'm a farmer", IntentFarmer},
		{"anything for agriculture", IntentFarmer},
		{"hello there", IntentFallback},
		{"", IntentFallback},
		// earlier rules win
		{"find student schemes", IntentRecommend},
		{"student eligibility", IntentEligibility},
		{"update business details", IntentProfile},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			reply := Respond(tt.input, models.UserProfile{}, records)
			assert.Equal(t, tt.want, reply.Intent)
			assert.NotEmpty(t, reply.Content)
			assert.LessOrEqual(t, len(reply.Suggestions), MaxSuggestions)
		})
	}
}

func TestRespond_Recommend(t *testing.T) {
	records := seedCatalog(t)

	reply := Respond("find me a scheme", models.UserProfile{}, records)
	require.NotEmpty(t, reply.Suggestions)
	assert.Nil(t, reply.ProfileUpdate)

	titles := 0
	for _, sc := range records {
		if strings.Contains(reply.Content, sc.Title) {
			titles++
		}
	}
	assert.LessOrEqual(t, titles, 3)
	assert.Contains(t, reply.Content, "Based on your profile, I found 3 schemes that might interest you:")
	assert.Contains(t, reply.Content, "1. **D-Purpose Startup Accelerator Grant**\n   Amount: ₹25 Lakhs\n   Category: Business\n   Success Rate: 85%")
}

func TestRespond_RecommendLimitsToThree(t *testing.T) {
	records := seedCatalog(t)
	records = append(records, models.Scheme{ID: "4", Title: "Extra Featured", Featured: true})

	reply := Respond("recommend", models.UserProfile{}, records)
	assert.NotContains(t, reply.Content, "Extra Featured")
	assert.NotContains(t, reply.Content, "4. **")
}

func TestRespond_RecommendNothingFound(t *testing.T) {
	reply := Respond("find", models.UserProfile{}, nil)
	assert.Equal(t, IntentRecommend, reply.Intent)
	assert.Contains(t, reply.Content, "I couldn't find specific schemes")
	assert.Equal(t, []string{"Update profile", "Browse all schemes", "What information do you need?"}, reply.Suggestions)
}

func TestRespond_EligibilityAsksForMissing(t *testing.T) {
	reply := Respond("am I eligible", models.UserProfile{Category: "Student"}, seedCatalog(t))

	assert.Equal(t, "To check eligibility, I need some information about you. What's your age? What's your annual income range? ", reply.Content)
	assert.Equal(t, []string{"I'm a student", "I'm a business owner", "I'm a farmer", "Update full profile"}, reply.Suggestions)
}

func TestRespond_EligibilityReady(t *testing.T) {
	profile := models.UserProfile{Age: 40, Income: "3-8L", Category: "Farmer"}
	reply := Respond("eligibility", profile, seedCatalog(t))

	assert.Equal(t, "Based on your profile, you're eligible for 1 schemes. Would you like me to show them?", reply.Content)
	assert.Equal(t, []string{"Show eligible schemes", "Update profile", "How to apply?"}, reply.Suggestions)
}

func TestRespond_ProfileSuggestionsCapped(t *testing.T) {
	reply := Respond("profile", models.UserProfile{}, nil)
	assert.Equal(t, []string{"Age and income", "Education level", "Business type", "Location"}, reply.Suggestions)
}

func TestRespond_StudentUpdateIsIdempotent(t *testing.T) {
	records := seedCatalog(t)
	profile := models.UserProfile{}

	for i := 0; i < 2; i++ {
		reply := Respond("I'm a student", profile, records)
		require.NotNil(t, reply.ProfileUpdate)
		require.NotNil(t, reply.ProfileUpdate.Category)
		assert.Equal(t, "Student", *reply.ProfileUpdate.Category)
		profile.Merge(reply.ProfileUpdate)
	}

	assert.Equal(t, "Student", profile.Category)
	assert.Equal(t, []string{"Education"}, profile.Interests)
}

func TestRespond_BusinessAndFarmerUpdates(t *testing.T) {
	profile := models.UserProfile{Interests: []string{"Business"}}

	reply := Respond("my business", profile, nil)
	profile.Merge(reply.ProfileUpdate)
	assert.Equal(t, "Business", profile.Category)
	assert.Equal(t, []string{"Business", "Entrepreneurship"}, profile.Interests)

	reply = Respond("Farmer here", profile, nil)
	profile.Merge(reply.ProfileUpdate)
	assert.Equal(t, "Farmer", profile.Category)
	assert.Equal(t, []string{"Business", "Entrepreneurship", "Agriculture"}, profile.Interests)
}

func TestGreeting(t *testing.T) {
	g := Greeting()
	assert.Equal(t, IntentGreeting, g.Intent)
	assert.True(t, strings.HasPrefix(g.Content, "Hello! I'm your personal scheme advisor."))
	assert.Len(t, g.Suggestions, 4)
}
