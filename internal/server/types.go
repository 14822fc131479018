package server

import "SponsorLedger/internal/query"

// Wire types for the JSON gRPC services and the HTTP gateway. Responses
// reuse the query package's types directly where they fit.

type GetSponsorRequest struct {
	Beneficiary string `json:"beneficiary"`
}

type GetBalanceRequest struct {
	Beneficiary string `json:"beneficiary"`
	Asset       string `json:"asset"`
}

type GetBalancesRequest struct {
	Beneficiary string `json:"beneficiary"`
}

type GetAssetTotalRequest struct {
	Asset string `json:"asset"`
}

type GetLifetimeRequest struct {
	Beneficiary string `json:"beneficiary"`
}

type GetAdminStateRequest struct{}

type ListRecordsRequest struct {
	Beneficiary  string `json:"beneficiary"`
	PageSize     int32  `json:"page_size"`
	FromSequence int64  `json:"from_sequence"`
}

type ListRecordsResponse struct {
	Records      []query.RecordResponse `json:"records"`
	AsOfSequence int64                  `json:"as_of_sequence"`
}

type GetSystemStatusRequest struct{}

type GetSystemStatusResponse struct {
	State         string `json:"state"`
	LastSequence  int64  `json:"last_sequence"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}

// --- ingest ---

type SubmitCommandRequest struct {
	CommandType string `json:"command_type"`
	Payload     []byte `json:"payload"`
}

type SubmitCommandResponse struct {
	Accepted       bool   `json:"accepted"`
	IdempotencyKey string `json:"idempotency_key,omitempty"`
}

// --- admin ---

type RebuildProjectionsRequest struct{}

type RebuildProjectionsResponse struct {
	Started bool   `json:"started"`
	TaskID  string `json:"task_id"`
}

type GetAuditLogInfoRequest struct{}

type GetAuditLogInfoResponse struct {
	LastSequence int64 `json:"last_sequence"`
}

type VerifyIntegrityRequest struct{}

type VerifyIntegrityResponse struct {
	Passed                bool   `json:"passed"`
	RecordsChecked        int64  `json:"records_checked"`
	FirstMismatchSequence int64  `json:"first_mismatch_sequence,omitempty"`
	ErrorDetail           string `json:"error_detail,omitempty"`
}
