package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyOccasion(t *testing.T) {
	tests := []struct {
		name     string
		title    string
		location string
		expected Occasion
	}{
		{
			name:     "standup is work",
			title:    "Team Standup",
			expected: OccasionWork,
		},
		{
			name:     "dinner is social",
			title:    "Dinner with Sam",
			expected: OccasionSocial,
		},
		{
			name:     "wedding reception is formal not social",
			title:    "Wedding Reception",
			expected: OccasionFormal,
		},
		{
			name:     "gym session is sport",
			title:    "Morning gym",
			expected: OccasionSport,
		},
		{
			name:     "unknown title defaults to casual",
			title:    "Errands",
			expected: OccasionCasual,
		},
		{
			name:     "empty title defaults to casual",
			title:    "",
			expected: OccasionCasual,
		},
		{
			name:     "location hint used when title matches nothing",
			title:    "Catch up",
			location: "Luigi's Restaurant",
			expected: OccasionSocial,
		},
		{
			name:     "formal location hint beats social location hint",
			title:    "Annual celebration",
			location: "Grand Ballroom, Hotel Astoria",
			expected: OccasionFormal,
		},
		{
			name:     "title match wins over location hint",
			title:    "Client presentation",
			location: "Luigi's Restaurant",
			expected: OccasionWork,
		},
		{
			name:     "case insensitive matching",
			title:    "GALA NIGHT",
			expected: OccasionFormal,
		},
		{
			name:     "office location is work",
			title:    "Quarterly planning",
			location: "HQ, floor 3",
			expected: OccasionWork,
		},
		{
			name:     "sport location hint",
			title:    "Saturday morning",
			location: "City Stadium",
			expected: OccasionSport,
		},
		{
			name:     "workout is sport not work",
			title:    "Workout",
			expected: OccasionSport,
		},
		{
			name:     "brunch is social despite embedded run",
			title:    "Brunch with Sam",
			expected: OccasionSocial,
		},
		{
			name:     "networking does not match work",
			title:    "Networking drinks",
			expected: OccasionSocial,
		},
		{
			name:     "keyword at end of title",
			title:    "Post-deploy retro",
			expected: OccasionWork,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ClassifyOccasion(tt.title, tt.location))
		})
	}
}
