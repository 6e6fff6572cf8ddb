package validator

import (
	"regexp"
	"slices"
	"strings"
)

var (
	emailRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	tldRegex   = regexp.MustCompile(`(?i)\.[a-z]{2,}$`)
	hourRegex  = regexp.MustCompile(`^([01]\d|2[0-3]):00(:00)?$`)
)

var disposableDomains = []string{
	"tempmail.com", "temp-mail.org", "guerrillamail.com", "guerrillamail.org",
	"mailinator.com", "maildrop.cc", "yopmail.com", "throwaway.email",
	"10minutemail.com", "10minutemail.net", "fakeinbox.com", "trashmail.com",
	"tempail.com", "tempmailaddress.com", "throwawaymail.com", "getnada.com",
	"mohmal.com", "emailondeck.com", "discard.email", "sharklasers.com",
	"spam4.me", "grr.la", "guerrillamail.info", "pokemail.net", "spam.la",
	"mailnesia.com", "mytemp.email", "mt2015.com", "temp.mail", "tempm.com",
	"tmpmail.net", "tmpmail.org", "temp-mail.io", "emailfake.com", "fakemailgenerator.com",
	"crazymailing.com", "tempmailo.com", "dispostable.com", "mailcatch.com",
	"mintemail.com", "tempinbox.com", "wegwerfmail.de", "guerrillamail.biz",
	"spamgourmet.com", "spamavert.com", "mailexpire.com", "tempmailgen.com",
	"mailnull.com", "spamex.com", "jetable.org", "trash-mail.com", "mytrashmail.com",
}

var trustedDomains = []string{
	"gmail.com", "googlemail.com",
	"yahoo.com", "yahoo.in", "yahoo.co.in", "yahoo.co.uk",
	"outlook.com", "hotmail.com", "live.com", "msn.com",
	"icloud.com", "me.com", "mac.com",
	"protonmail.com", "proton.me",
	"aol.com",
	"zoho.com", "zohomail.com",
	"mail.com",
	"gmx.com", "gmx.net",
	"yandex.com", "yandex.ru",
	"rediffmail.com",
	"fastmail.com", "fastmail.fm",
}

// EmailError carries a message safe to show to the user.
type EmailError struct {
	Message string
}

func (e *EmailError) Error() string { return e.Message }

// ValidateEmail rejects malformed addresses, disposable domains and common
// provider typos. Business domains with a real TLD are accepted.
func ValidateEmail(email string) error {
	if !emailRegex.MatchString(email) {
		return &EmailError{Message: "Please enter a valid email address"}
	}

	domain := strings.ToLower(email[strings.LastIndex(email, "@")+1:])
	trusted := slices.Contains(trustedDomains, domain)

	switch {
	case slices.Contains(disposableDomains, domain):
		return &EmailError{Message: "Temporary or disposable emails are not allowed. Please use a permanent email address."}
	case strings.Contains(domain, "gmail") && domain != "gmail.com" && domain != "googlemail.com":
		return &EmailError{Message: "Did you mean gmail.com?"}
	case strings.Contains(domain, "yahoo") && !trusted:
		return &EmailError{Message: "Did you mean yahoo.com?"}
	case (strings.Contains(domain, "hotmail") || strings.Contains(domain, "outlook")) && !trusted:
		return &EmailError{Message: "Did you mean hotmail.com or outlook.com?"}
	case !trusted && !tldRegex.MatchString(domain):
		return &EmailError{Message: "Please use a valid email from a trusted provider"}
	}
	return nil
}

func IsDisposableEmail(email string) bool {
	at := strings.LastIndex(email, "@")
	return at >= 0 && slices.Contains(disposableDomains, strings.ToLower(email[at+1:]))
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
