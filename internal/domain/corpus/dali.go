// Package corpus provides the documents the assistant answers from.
package corpus

import "github.com/kailas-cloud/museumrag/internal/domain"

// Dali returns the built-in Dalí Museum dataset.
func Dali() []domain.Document {
	return []domain.Document{
		{
			ID:      "1",
			Title:   "About the Dalí Museum",
			Section: "overview",
			Text: "The Dalí Museum is located in St. Petersburg, Florida. " +
				"It is dedicated to the works of the Spanish surrealist artist Salvador Dalí. " +
				"The museum holds one of the largest collections of Dalí’s works outside Europe.",
		},
		{
			ID:      "2",
			Title:   "Visitor Information",
			Section: "visit",
			Text: "The museum offers guided tours, audio guides, educational programs, " +
				"a garden inspired by Dalí’s work, and a museum shop with books and souvenirs.",
		},
		{
			ID:      "3",
			Title:   "Tickets and Hours",
			Section: "tickets",
			Text: "The Dalí Museum is open daily from 10 AM to 6 PM. " +
				"Tickets can be purchased online or at the entrance. " +
				"Discounts are available for students and seniors.",
		},
		{
			ID:      "4",
			Title:   "Exhibitions",
			Section: "exhibitions",
			Text: "The museum hosts rotating exhibitions showcasing Dalí’s paintings, " +
				"drawings, sculptures, and interactive displays.",
		},
		{
			ID:      "5",
			Title:   "Location",
			Section: "location",
			Text:    "The museum is located at 1 Dalí Boulevard, St. Petersburg, Florida, near the city waterfront.",
		},
	}
}
