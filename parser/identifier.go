package parser

import (
	"regexp"

	"github.com/aluiziolira/go-scrape-shelves/models"
)

// UnknownUsername is reported when a profile reference carries no numeric id.
const UnknownUsername = "unknown"

var profileIDPattern = regexp.MustCompile(`/show/(\d+)(?:-([^/?#]+))?`)

// ExtractProfileID derives the numeric user id and display handle from a
// profile reference such as https://www.goodreads.com/user/show/123-jane.
// It never fails: without a numeric id UserID is empty and Username is "unknown".
func ExtractProfileID(ref string) models.ProfileID {
	m := profileIDPattern.FindStringSubmatch(ref)
	if m == nil {
		return models.ProfileID{Username: UnknownUsername}
	}

	username := m[1]
	if m[2] != "" {
		username = m[2]
	}
	return models.ProfileID{UserID: m[1], Username: username}
}
