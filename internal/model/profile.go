package model

// Profile is the optional 1:1 extension of a user.
type Profile struct {
	ID          int64   `json:"id"`
	UserID      int64   `json:"user_id"`
	Username    *string `json:"username"`
	AvatarURL   *string `json:"avatar_url"`
	Address     *string `json:"address"`
	Country     *string `json:"country"`
	PhoneNumber *string `json:"phone_number"`
}

// ProfilePatch carries only the fields a client supplied; nil means unchanged.
type ProfilePatch struct {
	Username    *string `json:"username"`
	AvatarURL   *string `json:"avatar_url"`
	Address     *string `json:"address"`
	Country     *string `json:"country"`
	PhoneNumber *string `json:"phone_number"`
}

// Empty reports whether the patch changes nothing.
func (p ProfilePatch) Empty() bool {
	return p.Username == nil && p.AvatarURL == nil && p.Address == nil &&
		p.Country == nil && p.PhoneNumber == nil
}
