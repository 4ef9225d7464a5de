// Package form drives the embedded sweepstakes entry form: locating the
// form surface, filling the multi-step layout and classifying the submit
// outcome.
package form

// Selector keys shared by all supported sites. A site profile may override
// any of them; the defaults match the standard widget layout.
const (
	FieldFrame     = "frame"
	FieldEmail     = "email"
	FieldCheckUser = "check_user"
	FieldFirstName = "first_name"
	FieldLastName  = "last_name"
	FieldNext      = "next"
	FieldAddress1  = "address1"
	FieldAddress2  = "address2"
	FieldCity      = "city"
	FieldState     = "state"
	FieldZip       = "zip"
	FieldPhone     = "phone"
	FieldDOBMonth  = "dob_month"
	FieldDOBDay    = "dob_day"
	FieldDOBYear   = "dob_year"
	FieldGender    = "gender"
	FieldSubmit    = "submit"
)

// defaultSelectors is the selector map of the sweepwidget embed both
// supported sites use.
var defaultSelectors = map[string]string{
	FieldFrame:     "iframe[id^='sweepwidget']",
	FieldEmail:     "input[name='email']",
	FieldCheckUser: "button.sw-check-user",
	FieldFirstName: "input[name='first_name']",
	FieldLastName:  "input[name='last_name']",
	FieldNext:      "button.sw-next-step",
	FieldAddress1:  "input[name='address_one']",
	FieldAddress2:  "input[name='address_two']",
	FieldCity:      "input[name='city']",
	FieldState:     "select[name='state']",
	FieldZip:       "input[name='zip']",
	FieldPhone:     "input[name='phone']",
	FieldDOBMonth:  "select[name='dob_month']",
	FieldDOBDay:    "select[name='dob_day']",
	FieldDOBYear:   "select[name='dob_year']",
	FieldGender:    "select[name='gender']",
	FieldSubmit:    "button.sw-submit-entry",
}

// Profile is the immutable descriptor of one supported site
type Profile struct {
	Name      string
	EntryURL  string
	selectors map[string]string
}

// NewProfile builds a site profile, merging selector overrides over the
// shared defaults.
func NewProfile(name, entryURL string, overrides map[string]string) Profile {
	selectors := make(map[string]string, len(defaultSelectors))
	for key, sel := range defaultSelectors {
		selectors[key] = sel
	}
	for key, sel := range overrides {
		selectors[key] = sel
	}
	return Profile{Name: name, EntryURL: entryURL, selectors: selectors}
}

// Selector resolves a field key to its CSS selector
func (p Profile) Selector(key string) string {
	return p.selectors[key]
}

// Entrant is the operator's personal information, supplied once at startup
// and shared read-only by all runs.
type Entrant struct {
	Email      string
	FirstName  string
	LastName   string
	Address1   string
	Address2   string
	City       string
	State      string
	Zip        string
	Phone      string
	BirthMonth string
	BirthDay   string
	BirthYear  string
	Gender     string
}
