package application

import (
	"html/template"
	"time"
)

// PostSummaryView is a summary with its date formatted for display.
type PostSummaryView struct {
	UID         string
	Href        string
	Title       string
	Subtitle    string
	Author      string
	PublishedAt *time.Time
	PublishedOn string
}

// HomeView is the listing page model.
type HomeView struct {
	Posts    []PostSummaryView
	NextPage string
}

// HasMore reports whether the load-more affordance should be shown.
func (v *HomeView) HasMore() bool {
	return v.NextPage != ""
}

// PostView is the detail page model.
// Fallback is set on the placeholder rendered while the real page is built.
type PostView struct {
	UID             string
	Title           string
	Author          string
	BannerURL       string
	PublishedAt     *time.Time
	PublishedOn     string
	ReadTimeMinutes int
	Sections        []SectionView
	Fallback        bool
}

type SectionView struct {
	Heading string
	// Body is the CMS content rendered to markup; it is injected unescaped.
	Body template.HTML
}
