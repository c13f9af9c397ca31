package api

// PostSummary mirrors a Prismic search result, with the publication date
// also formatted for display.
type PostSummary struct {
	UID                  string          `json:"uid"`
	FirstPublicationDate *string         `json:"first_publication_date"`
	PublishedOn          string          `json:"published_on"`
	Data                 PostSummaryData `json:"data"`
}

type PostSummaryData struct {
	Title    string `json:"title"`
	Subtitle string `json:"subtitle"`
	Author   string `json:"author"`
}

// Pagination is a page of summaries. NextPage is null on the last page.
type Pagination struct {
	Results  []PostSummary `json:"results"`
	NextPage *string       `json:"next_page"`
}

type Post struct {
	UID                  string   `json:"uid"`
	FirstPublicationDate *string  `json:"first_publication_date"`
	PublishedOn          string   `json:"published_on"`
	ReadTimeMinutes      int      `json:"read_time_minutes"`
	Data                 PostData `json:"data"`
}

type PostData struct {
	Title   string         `json:"title"`
	Author  string         `json:"author"`
	Banner  Banner         `json:"banner"`
	Content []ContentBlock `json:"content"`
}

type Banner struct {
	URL string `json:"url"`
}

// ContentBlock carries its body already rendered to HTML.
type ContentBlock struct {
	Heading string `json:"heading"`
	Body    string `json:"body"`
}

type Error struct {
	Error string `json:"error"`
}
