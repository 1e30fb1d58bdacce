package portal

// Selectors locates the portal's login and invoice form elements. The
// defaults match the QA mirror; override per environment when the portal
// markup drifts.
type Selectors struct {
	Username     string
	Password     string
	SignInButton string
	Dashboard    string

	ServiceID    string
	Price        string
	InvoiceFile  string
	Description  string
	InvoiceDate  string
	SubmitButton string

	SuccessMarker   string
	PortalID        string
	RejectionBanner string
	ServiceTable    string
}

// DefaultSelectors returns the selector set for the current portal markup.
func DefaultSelectors() Selectors {
	return Selectors{
		Username:     `input[name='username']`,
		Password:     `input[name='password']`,
		SignInButton: `button[type='submit']`,
		Dashboard:    `#dashboard`,

		ServiceID:    `input[name='service_id']`,
		Price:        `input[name='price']`,
		InvoiceFile:  `input[type='file']`,
		Description:  `textarea[name='description']`,
		InvoiceDate:  `input[name='invoice_date']`,
		SubmitButton: `button[type='submit']`,

		SuccessMarker:   `.upload-success`,
		PortalID:        `[data-portal-id]`,
		RejectionBanner: `.form-error`,
		ServiceTable:    `table.services`,
	}
}
