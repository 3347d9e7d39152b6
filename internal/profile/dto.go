package profile

import "time"

type ProfileResponse struct {
	ProfileID string    `json:"profile_id"`
	Email     string    `json:"email"`
	FullName  *string   `json:"full_name,omitempty"`
	Phone     *string   `json:"phone,omitempty"`
	Role      string    `json:"role"`
	SiteID    *string   `json:"site_id,omitempty"`
	Complete  bool      `json:"complete"`
	CreatedAt time.Time `json:"created_at"`
}

type UpdateProfileRequest struct {
	FullName *string `json:"full_name,omitempty"`
	Phone    *string `json:"phone,omitempty"`
	SiteID   *string `json:"site_id,omitempty"`
}

func (p Profile) toDTO() ProfileResponse {
	resp := ProfileResponse{
		ProfileID: p.ProfileID,
		Email:     p.Email,
		Role:      p.Role,
		Complete:  p.Complete(),
		CreatedAt: p.CreatedAt,
	}
	if p.FullName.Valid {
		v := p.FullName.String
		resp.FullName = &v
	}
	if p.Phone.Valid {
		v := p.Phone.String
		resp.Phone = &v
	}
	if p.SiteULID.Valid {
		v := p.SiteULID.String
		resp.SiteID = &v
	}
	return resp
}
