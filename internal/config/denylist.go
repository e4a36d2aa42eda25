package config

// DefaultDenylistDomains returns domains whose pages are never indexed:
// banking, password managers, identity providers and health portals.
// Subdomains match too (see history.Service).
func DefaultDenylistDomains() []string {
	return []string{
		// Banking & payments
		"chase.com",
		"bankofamerica.com",
		"wellsfargo.com",
		"citi.com",
		"capitalone.com",
		"schwab.com",
		"fidelity.com",
		"vanguard.com",
		"paypal.com",
		"venmo.com",

		// Password managers
		"1password.com",
		"lastpass.com",
		"bitwarden.com",
		"dashlane.com",

		// Identity providers
		"accounts.google.com",
		"login.microsoftonline.com",
		"login.live.com",
		"auth0.com",
		"okta.com",

		// Health & government
		"mychart.com",
		"healthcare.gov",
		"irs.gov",
		"login.gov",
	}
}
