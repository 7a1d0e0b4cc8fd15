package pipeline

import (
	"context"
	"net/url"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/net/publicsuffix"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/sells-group/outreach-cli/internal/emailgen"
	"github.com/sells-group/outreach-cli/internal/model"
)

// Raw export column names, in lookup order.
var (
	websiteAliases = []string{"website", "site", "url", "domain", "Website", "URL"}
	companyAliases = []string{"company_name", "name", "company", "business_name", "title", "Name"}
	emailAliases   = []string{"email", "Email", "e-mail", "E-mail"}
	contactAliases = []string{"contact_name", "contact", "owner", "full_name", "Contact"}
)

// extraColumns are copied under their canonical name from the first raw
// column containing them ("Phone Number" -> phone).
var extraColumns = []string{"phone", "address", "city", "category", "google_rating", "reviews"}

// excludedDomains are hosts that never identify a business's own site.
var excludedDomains = []string{
	// social and directories
	"facebook.com", "fb.com", "instagram.com", "twitter.com", "x.com", "linkedin.com",
	"youtube.com", "tiktok.com", "pinterest.com", "yelp.com", "google.com", "goo.gl",
	"nextdoor.com", "angi.com", "thumbtack.com", "houzz.com", "bbb.org",
	// free mail
	"gmail.com", "googlemail.com", "yahoo.com", "hotmail.com", "outlook.com", "live.com",
	"aol.com", "icloud.com", "me.com", "msn.com", "protonmail.com", "proton.me", "gmx.com",
	// site builders
	"wixsite.com", "wix.com", "squarespace.com", "weebly.com", "godaddysites.com",
	"wordpress.com", "blogspot.com", "business.site", "square.site", "carrd.co",
}

var companySuffixRe = regexp.MustCompile(`(?i)[,\s]+(llc|l\.l\.c\.|inc|incorporated|ltd|limited|corp|corporation|co|pllc|lp|llp)\.?$`)

// CleanStage normalizes raw leads, assigns ids, and drops invalid and
// duplicate records.
type CleanStage struct {
	title cases.Caser
}

// NewCleanStage creates a CleanStage.
func NewCleanStage() *CleanStage {
	return &CleanStage{title: cases.Title(language.English)}
}

func (s *CleanStage) Name() StageName { return StageClean }

// ValidateHeader requires a column the stage can derive a domain from.
func (s *CleanStage) ValidateHeader(header []string) error {
	have := make(map[string]bool, len(header))
	for _, h := range header {
		have[h] = true
	}
	for _, alias := range append(append([]string{}, websiteAliases...), emailAliases...) {
		if have[alias] {
			return nil
		}
	}
	return requirements{"website"}.ValidateHeader(header)
}

// Run implements Stage. Records are processed in order so the first
// occurrence of a lead wins deduplication.
func (s *CleanStage) Run(ctx context.Context, leads []*model.Lead) (*Result, error) {
	seen := make(map[string]string)
	return process(ctx, StageClean, leads, nil, 0, nil, func(_ context.Context, l *model.Lead) (*degrade, error) {
		if err := s.clean(l); err != nil {
			return nil, err
		}
		key := dedupeKey(l)
		if first, dup := seen[key]; dup {
			return nil, rejectf(model.ReasonDuplicate, "same domain and contact as lead %s", first)
		}
		seen[key] = l.ID()
		return nil, nil
	})
}

func (s *CleanStage) clean(l *model.Lead) error {
	var notes []string

	email := strings.ToLower(strings.TrimSpace(lookup(l, emailAliases)))
	if email != "" && !emailgen.ValidEmail(email) {
		return rejectf(model.ReasonInvalid, "malformed email %q", email)
	}

	var website, domain string
	if raw := lookup(l, websiteAliases); strings.TrimSpace(raw) != "" {
		w, host, n, err := normalizeURL(raw)
		if err != nil {
			return rejectf(model.ReasonInvalid, "%s", err.Error())
		}
		website, domain = w, registrableDomain(host)
		notes = append(notes, n...)
		if excluded(host) {
			return rejectf(model.ReasonInvalid, "%s is not a business domain", domain)
		}
	} else {
		if email == "" {
			return rejectf(model.ReasonInvalid, "no website or email")
		}
		host := email[strings.LastIndexByte(email, '@')+1:]
		if excluded(host) {
			return rejectf(model.ReasonInvalid, "no website and %s is not a business domain", host)
		}
		domain = registrableDomain(host)
		website = "https://" + domain
		notes = append(notes, "domain_from_email")
	}

	company := strings.Join(strings.Fields(lookup(l, companyAliases)), " ")
	if cleaned := cleanCompanyName(company); cleaned != company {
		company = cleaned
		notes = append(notes, "stripped_company_suffix")
	}
	if company == "" {
		company = s.companyFromDomain(domain)
		notes = append(notes, "company_from_domain")
	}

	contact := strings.Join(strings.Fields(lookup(l, contactAliases)), " ")
	if contact == "" {
		contact = strings.TrimSpace(strings.TrimSpace(l.Get("first_name")) + " " + strings.TrimSpace(l.Get("last_name")))
	}

	for _, col := range extraColumns {
		if l.HasColumn(col) {
			continue
		}
		for _, c := range l.Columns() {
			if strings.Contains(strings.ToLower(c), col) {
				l.Set(col, l.Get(c))
				break
			}
		}
	}

	l.Set(model.FieldCompanyName, company)
	l.Set(model.FieldContactName, contact)
	l.Set(model.FieldDomain, domain)
	l.Set(model.FieldWebsite, website)
	l.Set(model.FieldEmail, email)
	l.Set(model.FieldLeadID, LeadID(domain, contact))
	l.SetBool(model.FieldCleanValid, true)
	l.Set(model.FieldCleanNotes, strings.Join(notes, ";"))
	return nil
}

func (s *CleanStage) companyFromDomain(domain string) string {
	label := domain
	if i := strings.IndexByte(label, '.'); i > 0 {
		label = label[:i]
	}
	return s.title.String(strings.ReplaceAll(label, "-", " "))
}

// LeadID derives the stable id for a domain and contact. Re-cleaning the
// same input yields the same ids.
func LeadID(domain, contact string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(domain+"|"+strings.ToLower(contact))).String()
}

func dedupeKey(l *model.Lead) string {
	return l.Domain() + "|" + strings.ToLower(l.Get(model.FieldContactName))
}

// lookup returns the first non-empty value among aliases.
func lookup(l *model.Lead, aliases []string) string {
	for _, a := range aliases {
		if v := l.Get(a); strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// normalizeURL reduces raw to scheme://host. notes records what changed.
func normalizeURL(raw string) (website, host string, notes []string, err error) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if !strings.Contains(raw, "://") {
		raw = "https://" + strings.TrimPrefix(raw, "//")
		notes = append(notes, "added_scheme")
	}
	u, perr := url.Parse(raw)
	if perr != nil {
		return "", "", nil, &url.Error{Op: "normalize", URL: raw, Err: errInvalidHost}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", "", nil, &url.Error{Op: "normalize", URL: raw, Err: errUnsupportedScheme}
	}
	host = strings.TrimSuffix(u.Hostname(), ".")
	if !validHost(host) {
		return "", "", nil, &url.Error{Op: "normalize", URL: raw, Err: errInvalidHost}
	}
	if (u.Path != "" && u.Path != "/") || u.RawQuery != "" || u.Fragment != "" {
		notes = append(notes, "stripped_path")
	}
	return u.Scheme + "://" + host, host, notes, nil
}

var hostRe = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]*[a-z0-9])?(\.[a-z0-9]([a-z0-9-]*[a-z0-9])?)+$`)

func validHost(host string) bool {
	return hostRe.MatchString(host) && !strings.HasSuffix(host, ".local")
}

// registrableDomain strips www. and any subdomain below the public suffix.
func registrableDomain(host string) string {
	host = strings.TrimPrefix(host, "www.")
	if d, err := publicsuffix.EffectiveTLDPlusOne(host); err == nil {
		return d
	}
	return host
}

func excluded(host string) bool {
	host = strings.TrimPrefix(strings.ToLower(host), "www.")
	for _, ex := range excludedDomains {
		if host == ex || strings.HasSuffix(host, "."+ex) {
			return true
		}
	}
	return false
}

func cleanCompanyName(name string) string {
	for {
		stripped := strings.TrimRight(companySuffixRe.ReplaceAllString(name, ""), ", &")
		if stripped == name || stripped == "" {
			return name
		}
		name = stripped
	}
}
