package backend

type ListCatsRequest struct {
	Offset int `query:"off" validate:"min=0"`
}

type SaveCatRequest struct {
	Image string `json:"image" form:"image" validate:"required"`
}

type SessionRequest struct {
	Bicmid string `json:"bicmid" form:"bicmid" validate:"required,max=256"`
}

type SaveCatResponse struct {
	ID int64 `json:"id"`
}
