package parser

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/aluiziolira/go-scrape-shelves/models"
)

var (
	nameSelectors = []string{`h1[itemprop="name"]`, "h1.userProfileName"}

	ratingsPattern = regexp.MustCompile(`(?i)(\d[\d,]*)\s+ratings?\b`)
	reviewsPattern = regexp.MustCompile(`(?i)(\d[\d,]*)\s+reviews?\b`)
	friendsPattern = regexp.MustCompile(`(?i)(\d[\d,]*)\s+friends?\b`)
	averagePattern = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s+avg\b`)
)

// ScrapeProfile pulls the display name and aggregate counts out of a profile
// page. Matching is tolerant; anything not found stays nil.
func ScrapeProfile(page string) models.Profile {
	var profile models.Profile

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return profile
	}
	doc.Find("script, style").Remove()

	for _, selector := range nameSelectors {
		if name := collapse(doc.Find(selector).First().Text()); name != "" {
			profile.Name = &name
			break
		}
	}

	text := collapse(doc.Text())
	profile.RatingsCount = matchCount(ratingsPattern, text)
	profile.ReviewsCount = matchCount(reviewsPattern, text)
	profile.FriendsCount = matchCount(friendsPattern, text)
	if m := averagePattern.FindStringSubmatch(text); m != nil {
		if avg, err := strconv.ParseFloat(m[1], 64); err == nil {
			profile.AverageRating = &avg
		}
	}

	return profile
}

func matchCount(pattern *regexp.Regexp, text string) *int {
	m := pattern.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	n, err := strconv.Atoi(strings.ReplaceAll(m[1], ",", ""))
	if err != nil {
		return nil
	}
	return &n
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
