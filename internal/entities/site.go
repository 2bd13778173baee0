package entities

// Profile holds the company details shown on the site; one record expected
type Profile struct {
	Base
	CompanyName string            `json:"companyName"`
	Tagline     string            `json:"tagline,omitempty"`
	About       string            `json:"about,omitempty"`
	Email       string            `json:"email,omitempty"`
	Phone       string            `json:"phone,omitempty"`
	Address     string            `json:"address,omitempty"`
	LogoURL     string            `json:"logoUrl,omitempty"`
	Social      map[string]string `json:"social,omitempty"` // network name to URL
}

func (p *Profile) Validate() error {
	var v checker
	v.required("companyName", p.CompanyName)
	v.email("email", p.Email, false)
	return v.err()
}

// WebsiteImage is an image slot on a page section
type WebsiteImage struct {
	Base
	SoftDelete
	Section   string `json:"section"`
	Title     string `json:"title,omitempty"`
	URL       string `json:"url"`
	AltText   string `json:"altText,omitempty"`
	SortOrder int    `json:"sortOrder"`
	Active    bool   `json:"active"`
}

func (w *WebsiteImage) Validate() error {
	var v checker
	v.required("section", w.Section)
	v.required("url", w.URL)
	return v.err()
}

// SystemSetting holds site-wide switches; one record expected
type SystemSetting struct {
	Base
	SiteName        string `json:"siteName"`
	ContactEmail    string `json:"contactEmail,omitempty"`
	ChatEnabled     bool   `json:"chatEnabled"`
	MaintenanceMode bool   `json:"maintenanceMode"`
	Announcement    string `json:"announcement,omitempty"`
}

func (s *SystemSetting) Validate() error {
	var v checker
	v.required("siteName", s.SiteName)
	v.email("contactEmail", s.ContactEmail, false)
	v.maxLen("announcement", s.Announcement, 500)
	return v.err()
}

// Video is a promotional video; the first active one is shown
type Video struct {
	Base
	SoftDelete
	Title  string `json:"title"`
	URL    string `json:"url"`
	Active bool   `json:"active"`
}

func (vd *Video) Validate() error {
	var v checker
	v.required("title", vd.Title)
	v.required("url", vd.URL)
	return v.err()
}
