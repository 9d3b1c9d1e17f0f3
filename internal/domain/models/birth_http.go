package models

// BirthRecordRequest is the create/update body of /api/users.
type BirthRecordRequest struct {
	Name      string  `json:"name" validate:"required,max=128"`
	Birthdate string  `json:"birthdate" validate:"required,datetime=2006-01-02"`
	Birthtime string  `json:"birthtime" validate:"required,datetime=15:04"`
	Lat       float64 `json:"lat" validate:"gte=-90,lte=90"`
	Lng       float64 `json:"lng" validate:"gte=-180,lte=180"`
	City      string  `json:"city" validate:"required"`
	TZStr     string  `json:"tz_str" validate:"required,timezone"`
}

// BirthRecordResponse mirrors the request plus the record id.
type BirthRecordResponse struct {
	ID        int64   `json:"id"`
	Name      string  `json:"name"`
	Birthdate string  `json:"birthdate"`
	Birthtime string  `json:"birthtime"`
	Lat       float64 `json:"lat"`
	Lng       float64 `json:"lng"`
	City      string  `json:"city"`
	TZStr     string  `json:"tz_str"`
}

// NewBirthRecordResponse renders a stored record.
func NewBirthRecordResponse(r *BirthRecord) BirthRecordResponse {
	return BirthRecordResponse{
		ID:        r.ID,
		Name:      r.Name,
		Birthdate: r.Birthdate(),
		Birthtime: r.Birthtime(),
		Lat:       r.Lat,
		Lng:       r.Lng,
		City:      r.City,
		TZStr:     r.TZStr,
	}
}

// ExtractRequest is the body of the extraction endpoints.
type ExtractRequest struct {
	Text string `json:"text" validate:"required,max=4000"`
	Save bool   `json:"save"`
}

// StatsRequest selects the time range of the stats endpoints.
type StatsRequest struct {
	From  string `query:"from"`
	To    string `query:"to"`
	Kind  string `query:"kind"`
	Limit int    `query:"limit" default:"20" validate:"gte=1,lte=200"`
}
