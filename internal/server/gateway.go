package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/grpc/status"
)

// StartHTTPGateway starts the HTTP/JSON gateway (blocking). Endpoints are
// registered on a grpc-gateway mux via HandlePath and dispatch in-process
// to the same service implementations the gRPC server uses, so both
// surfaces stay in lockstep. HTTP/JSON is intended for tooling, dashboards,
// and curl.
func (s *GRPCServer) StartHTTPGateway(ctx context.Context) error {
	mux := runtime.NewServeMux()

	querySvc := &queryServiceImpl{
		qs:        s.deps.QueryService,
		snapMgr:   s.deps.SnapshotMgr,
		metrics:   s.deps.Metrics,
		startTime: s.deps.StartTime,
	}
	ingestSvc := &ingestServiceImpl{svc: s.deps.IngestService}
	adminSvc := &adminServiceImpl{
		db:           s.deps.DB,
		snapMgr:      s.deps.SnapshotMgr,
		queryService: s.deps.QueryService,
		log:          s.deps.Log,
	}

	routes := []struct {
		method  string
		path    string
		handler runtime.HandlerFunc
	}{
		{"GET", "/v1/sponsor/{beneficiary}", func(w http.ResponseWriter, r *http.Request, p map[string]string) {
			writeJSON(w)(querySvc.GetSponsor(r.Context(), &GetSponsorRequest{Beneficiary: p["beneficiary"]}))
		}},
		{"GET", "/v1/balance/{beneficiary}/{asset}", func(w http.ResponseWriter, r *http.Request, p map[string]string) {
			writeJSON(w)(querySvc.GetBalance(r.Context(), &GetBalanceRequest{
				Beneficiary: p["beneficiary"],
				Asset:       p["asset"],
			}))
		}},
		{"GET", "/v1/balances/{beneficiary}", func(w http.ResponseWriter, r *http.Request, p map[string]string) {
			writeJSON(w)(querySvc.GetBalances(r.Context(), &GetBalancesRequest{Beneficiary: p["beneficiary"]}))
		}},
		{"GET", "/v1/assets/{asset}/total", func(w http.ResponseWriter, r *http.Request, p map[string]string) {
			writeJSON(w)(querySvc.GetAssetTotal(r.Context(), &GetAssetTotalRequest{Asset: p["asset"]}))
		}},
		{"GET", "/v1/lifetime/{beneficiary}", func(w http.ResponseWriter, r *http.Request, p map[string]string) {
			writeJSON(w)(querySvc.GetLifetime(r.Context(), &GetLifetimeRequest{Beneficiary: p["beneficiary"]}))
		}},
		{"GET", "/v1/admin/state", func(w http.ResponseWriter, r *http.Request, p map[string]string) {
			writeJSON(w)(querySvc.GetAdminState(r.Context(), &GetAdminStateRequest{}))
		}},
		{"GET", "/v1/records/{beneficiary}", func(w http.ResponseWriter, r *http.Request, p map[string]string) {
			req := &ListRecordsRequest{Beneficiary: p["beneficiary"]}
			if v := r.URL.Query().Get("page_size"); v != "" {
				if n, err := strconv.ParseInt(v, 10, 32); err == nil {
					req.PageSize = int32(n)
				}
			}
			if v := r.URL.Query().Get("from_sequence"); v != "" {
				if n, err := strconv.ParseInt(v, 10, 64); err == nil {
					req.FromSequence = n
				}
			}
			writeJSON(w)(querySvc.ListRecords(r.Context(), req))
		}},
		{"GET", "/v1/status", func(w http.ResponseWriter, r *http.Request, p map[string]string) {
			writeJSON(w)(querySvc.GetSystemStatus(r.Context(), &GetSystemStatusRequest{}))
		}},
		{"POST", "/v1/commands", func(w http.ResponseWriter, r *http.Request, p map[string]string) {
			var req SubmitCommandRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, fmt.Sprintf(`{"error":"decode request: %v"}`, err), http.StatusBadRequest)
				return
			}
			writeJSON(w)(ingestSvc.SubmitCommand(r.Context(), &req))
		}},
		{"POST", "/v1/admin/rebuild-projections", func(w http.ResponseWriter, r *http.Request, p map[string]string) {
			writeJSON(w)(adminSvc.RebuildProjections(r.Context(), &RebuildProjectionsRequest{}))
		}},
		{"GET", "/v1/admin/audit-log", func(w http.ResponseWriter, r *http.Request, p map[string]string) {
			writeJSON(w)(adminSvc.GetAuditLogInfo(r.Context(), &GetAuditLogInfoRequest{}))
		}},
		{"GET", "/v1/admin/verify-integrity", func(w http.ResponseWriter, r *http.Request, p map[string]string) {
			writeJSON(w)(adminSvc.VerifyIntegrity(r.Context(), &VerifyIntegrityRequest{}))
		}},
	}

	for _, rt := range routes {
		if err := mux.HandlePath(rt.method, rt.path, rt.handler); err != nil {
			return fmt.Errorf("register %s %s: %w", rt.method, rt.path, err)
		}
	}

	httpMux := http.NewServeMux()
	if s.healthChecker != nil {
		httpMux.HandleFunc("/healthz", s.healthChecker.LivenessHandler)
		httpMux.HandleFunc("/readyz", s.healthChecker.ReadinessHandler)
	} else {
		httpMux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			fmt.Fprintf(w, `{"status":"ok"}`)
		})
	}
	httpMux.Handle("/metrics", promhttp.Handler())
	httpMux.Handle("/", mux)

	httpServer := &http.Server{
		Addr:    s.httpAddr,
		Handler: httpMux,
	}

	go func() {
		<-ctx.Done()
		s.log.Info().Msg("HTTP gateway shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		httpServer.Shutdown(shutdownCtx)
	}()

	s.log.Info().Str("addr", s.httpAddr).Msg("HTTP gateway listening")
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// writeJSON returns a continuation that renders a handler result pair.
// gRPC status errors map onto HTTP codes so both surfaces agree.
func writeJSON(w http.ResponseWriter) func(v interface{}, err error) {
	return func(v interface{}, err error) {
		w.Header().Set("Content-Type", "application/json")
		if err != nil {
			st := status.Convert(err)
			w.WriteHeader(runtime.HTTPStatusFromCode(st.Code()))
			json.NewEncoder(w).Encode(map[string]interface{}{
				"code":    st.Code().String(),
				"message": st.Message(),
			})
			return
		}
		json.NewEncoder(w).Encode(v)
	}
}
