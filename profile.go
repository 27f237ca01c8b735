package reachfive

// Consent is a user decision on one consent definition
type Consent struct {
	Granted     bool   `json:"granted"`
	ConsentType string `json:"consent_type,omitempty"`
	Date        string `json:"date,omitempty"`
}

// ProfileAddress is a postal address attached to a profile
type ProfileAddress struct {
	Title         string `json:"title,omitempty"`
	IsDefault     bool   `json:"default,omitempty"`
	AddressType   string `json:"address_type,omitempty"`
	StreetAddress string `json:"street_address,omitempty"`
	Locality      string `json:"locality,omitempty"`
	Region        string `json:"region,omitempty"`
	PostalCode    string `json:"postal_code,omitempty"`
	Country       string `json:"country,omitempty"`
	Raw           string `json:"raw,omitempty"`
	DeliveryNote  string `json:"delivery_note,omitempty"`
	Recipient     string `json:"recipient,omitempty"`
	Company       string `json:"company,omitempty"`
	PhoneNumber   string `json:"phone_number,omitempty"`
}

// ProfileSignupRequest is the profile submitted on password signup
type ProfileSignupRequest struct {
	Password         string             `json:"password"`
	Email            string             `json:"email,omitempty"`
	PhoneNumber      string             `json:"phone_number,omitempty"`
	CustomIdentifier string             `json:"custom_identifier,omitempty"`
	GivenName        string             `json:"given_name,omitempty"`
	MiddleName       string             `json:"middle_name,omitempty"`
	FamilyName       string             `json:"family_name,omitempty"`
	Name             string             `json:"name,omitempty"`
	Nickname         string             `json:"nickname,omitempty"`
	Birthdate        string             `json:"birthdate,omitempty"`
	ProfileURL       string             `json:"profile_url,omitempty"`
	Picture          string             `json:"picture,omitempty"`
	Username         string             `json:"username,omitempty"`
	Gender           string             `json:"gender,omitempty"`
	Company          string             `json:"company,omitempty"`
	Addresses        []ProfileAddress   `json:"addresses,omitempty"`
	Locale           string             `json:"locale,omitempty"`
	Bio              string             `json:"bio,omitempty"`
	CustomFields     map[string]any     `json:"custom_fields,omitempty"`
	Consents         map[string]Consent `json:"consents,omitempty"`
	LiteOnly         bool               `json:"lite_only,omitempty"`
}

// ProfileWebAuthnSignupRequest is ProfileSignupRequest without a password
type ProfileWebAuthnSignupRequest struct {
	Email            string             `json:"email,omitempty"`
	PhoneNumber      string             `json:"phone_number,omitempty"`
	CustomIdentifier string             `json:"custom_identifier,omitempty"`
	GivenName        string             `json:"given_name,omitempty"`
	MiddleName       string             `json:"middle_name,omitempty"`
	FamilyName       string             `json:"family_name,omitempty"`
	Name             string             `json:"name,omitempty"`
	Nickname         string             `json:"nickname,omitempty"`
	Birthdate        string             `json:"birthdate,omitempty"`
	Username         string             `json:"username,omitempty"`
	Gender           string             `json:"gender,omitempty"`
	Locale           string             `json:"locale,omitempty"`
	CustomFields     map[string]any     `json:"custom_fields,omitempty"`
	Consents         map[string]Consent `json:"consents,omitempty"`
}

// Profile is the user profile returned by userinfo and the update endpoints
type Profile struct {
	UID                 string             `json:"uid,omitempty"`
	Sub                 string             `json:"sub,omitempty"`
	Email               string             `json:"email,omitempty"`
	EmailVerified       *bool              `json:"email_verified,omitempty"`
	PhoneNumber         string             `json:"phone_number,omitempty"`
	PhoneNumberVerified *bool              `json:"phone_number_verified,omitempty"`
	CustomIdentifier    string             `json:"custom_identifier,omitempty"`
	GivenName           string             `json:"given_name,omitempty"`
	MiddleName          string             `json:"middle_name,omitempty"`
	FamilyName          string             `json:"family_name,omitempty"`
	Name                string             `json:"name,omitempty"`
	Nickname            string             `json:"nickname,omitempty"`
	Birthdate           string             `json:"birthdate,omitempty"`
	Picture             string             `json:"picture,omitempty"`
	Username            string             `json:"username,omitempty"`
	Gender              string             `json:"gender,omitempty"`
	Company             string             `json:"company,omitempty"`
	Addresses           []ProfileAddress   `json:"addresses,omitempty"`
	Locale              string             `json:"locale,omitempty"`
	Bio                 string             `json:"bio,omitempty"`
	CustomFields        map[string]any     `json:"custom_fields,omitempty"`
	Consents            map[string]Consent `json:"consents,omitempty"`
	CreatedAt           string             `json:"created_at,omitempty"`
	UpdatedAt           string             `json:"updated_at,omitempty"`
	LiteOnly            *bool              `json:"lite_only,omitempty"`
}
