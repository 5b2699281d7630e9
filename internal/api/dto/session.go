package dto

import (
	"geosort-service/internal/domain"
	"geosort-service/internal/services"
)

type CreateSessionResponse struct {
	ID       string       `json:"id"`
	Stage    domain.Stage `json:"stage"`
	FileName string       `json:"file_name"`
	Header   domain.Row   `json:"header"`
	Rows     int          `json:"rows"`
	Preview  domain.Table `json:"preview"`
}

type SessionResponse struct {
	ID string `json:"id"`
	services.State
}

type GeocodeResponse struct {
	Stage  domain.Stage           `json:"stage"`
	Report services.GeocodeReport `json:"report"`
}

type OptimizeResponse struct {
	Stage  domain.Stage         `json:"stage"`
	Report services.RouteReport `json:"report"`
}
