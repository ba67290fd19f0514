package ledger

// organizationPrefixes maps a student-id prefix to the institution that
// issued it. Unrecognized prefixes skip the debit entirely.
var organizationPrefixes = map[string]string{
	"03": "NTUA",
	"15": "EKPA",
}

// OrganizationFor infers the issuing institution from a student id,
// preferring the longest matching prefix.
func OrganizationFor(am string) (string, bool) {
	for l := len(am); l > 0; l-- {
		if org, ok := organizationPrefixes[am[:l]]; ok {
			return org, true
		}
	}
	return "", false
}
