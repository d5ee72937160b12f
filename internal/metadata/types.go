package metadata

// Details is the primary metadata record for a movie or show.
type Details struct {
	ID           int64   `json:"id"`
	Title        string  `json:"title"`
	Name         string  `json:"name"`
	Overview     string  `json:"overview"`
	PosterPath   string  `json:"poster_path"`
	BackdropPath string  `json:"backdrop_path"`
	ReleaseDate  string  `json:"release_date"`
	FirstAirDate string  `json:"first_air_date"`
	Runtime      int     `json:"runtime"`
	VoteAverage  float64 `json:"vote_average"`
	Seasons      int     `json:"number_of_seasons"`
	Episodes     int     `json:"number_of_episodes"`
	Genres       []Genre `json:"genres"`
}

// Genre is a single genre tag on a Details record.
type Genre struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// DisplayTitle returns the title field appropriate for the media type;
// movies use "title", shows use "name".
func (d *Details) DisplayTitle() string {
	if d.Title != "" {
		return d.Title
	}
	return d.Name
}

// Year returns the release year portion of the date fields, or "" when
// unknown.
func (d *Details) Year() string {
	date := d.ReleaseDate
	if date == "" {
		date = d.FirstAirDate
	}
	if len(date) < 4 {
		return ""
	}
	return date[:4]
}

// Episode is the secondary record for one TV episode.
type Episode struct {
	ID            int64   `json:"id"`
	Name          string  `json:"name"`
	Overview      string  `json:"overview"`
	AirDate       string  `json:"air_date"`
	SeasonNumber  int     `json:"season_number"`
	EpisodeNumber int     `json:"episode_number"`
	Runtime       int     `json:"runtime"`
	StillPath     string  `json:"still_path"`
	VoteAverage   float64 `json:"vote_average"`
}

// SearchPage is one page of search or trending results.
type SearchPage struct {
	Page         int       `json:"page"`
	Results      []Details `json:"results"`
	TotalPages   int       `json:"total_pages"`
	TotalResults int       `json:"total_results"`
}
