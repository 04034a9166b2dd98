package adapter

import (
	"context"
	"time"
)

type PartnerInstance struct {
	IDInstance     int64
	Name           string
	TypeAccount    string
	Tariff         string
	TimeCreated    time.Time
	ExpirationDate time.Time
	IsExpired      bool
	IsDeleted      bool
}

type CreatedInstance struct {
	IDInstance       int64  `json:"idInstance"`
	APITokenInstance string `json:"apiTokenInstance"`
	TypeInstance     string `json:"typeInstance"`
}

// PartnerClient provisions gateway instances with a partner token.
type PartnerClient interface {
	CreateInstance(ctx context.Context, partnerToken string) (CreatedInstance, error)
	GetInstances(ctx context.Context, partnerToken string) ([]PartnerInstance, error)
	DeleteInstanceAccount(ctx context.Context, partnerToken string, instanceID int64) error
}
