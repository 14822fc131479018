package server

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"

	"SponsorLedger/internal/ingestion"
	"SponsorLedger/internal/observability"
	"SponsorLedger/internal/persistence"
	"SponsorLedger/internal/projection"
	"SponsorLedger/internal/query"
)

// GRPCServer wraps the gRPC server and the HTTP/JSON gateway.
// Service descriptors are hand-rolled over the JSON codec: the wire types
// live in types.go and clients opt in with grpc.CallContentSubtype("json").
type GRPCServer struct {
	grpcServer    *grpc.Server
	grpcAddr      string
	httpAddr      string
	healthChecker *observability.HealthChecker
	deps          *ServerDeps
	log           zerolog.Logger
}

// ServerDeps holds all dependencies needed by the gRPC services.
type ServerDeps struct {
	DB            *sql.DB
	QueryService  *query.QueryService
	IngestService *ingestion.GRPCIngestService
	SnapshotMgr   *persistence.SnapshotManager
	Metrics       *observability.Metrics
	StartTime     time.Time
	HealthChecker *observability.HealthChecker
	Log           zerolog.Logger
}

// NewGRPCServer creates a new gRPC server with all services registered.
func NewGRPCServer(grpcAddr, httpAddr string, deps *ServerDeps) *GRPCServer {
	grpcServer := grpc.NewServer()

	grpcServer.RegisterService(&queryServiceDesc, &queryServiceImpl{
		qs:        deps.QueryService,
		snapMgr:   deps.SnapshotMgr,
		metrics:   deps.Metrics,
		startTime: deps.StartTime,
	})
	grpcServer.RegisterService(&ingestServiceDesc, &ingestServiceImpl{
		svc: deps.IngestService,
	})
	grpcServer.RegisterService(&adminServiceDesc, &adminServiceImpl{
		db:           deps.DB,
		snapMgr:      deps.SnapshotMgr,
		queryService: deps.QueryService,
		log:          deps.Log,
	})

	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	return &GRPCServer{
		grpcServer:    grpcServer,
		grpcAddr:      grpcAddr,
		httpAddr:      httpAddr,
		healthChecker: deps.HealthChecker,
		deps:          deps,
		log:           deps.Log.With().Str("component", "server").Logger(),
	}
}

// StartGRPC starts the gRPC server (blocking).
func (s *GRPCServer) StartGRPC(ctx context.Context) error {
	lis, err := net.Listen("tcp", s.grpcAddr)
	if err != nil {
		return fmt.Errorf("grpc listen: %w", err)
	}

	go func() {
		<-ctx.Done()
		s.log.Info().Msg("gRPC server shutting down")
		s.grpcServer.GracefulStop()
	}()

	s.log.Info().Str("addr", s.grpcAddr).Msg("gRPC server listening")
	return s.grpcServer.Serve(lis)
}

// unaryMethod builds a grpc.MethodDesc around a JSON wire type. The
// decode/dispatch dance matches what protoc-gen-go-grpc generates.
func unaryMethod(serviceName, methodName string, newReq func() interface{},
	call func(srv interface{}, ctx context.Context, req interface{}) (interface{}, error),
) grpc.MethodDesc {
	fullMethod := fmt.Sprintf("/%s/%s", serviceName, methodName)
	return grpc.MethodDesc{
		MethodName: methodName,
		Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
			in := newReq()
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv, ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			handler := func(ctx context.Context, req interface{}) (interface{}, error) {
				return call(srv, ctx, req)
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// ============================================================================
// QueryService
// ============================================================================

const queryServiceName = "sponsorledger.query.v1.QueryService"

type queryServiceImpl struct {
	qs        *query.QueryService
	snapMgr   *persistence.SnapshotManager
	metrics   *observability.Metrics
	startTime time.Time
}

var queryServiceDesc = grpc.ServiceDesc{
	ServiceName: queryServiceName,
	HandlerType: (*interface{})(nil),
	Methods: []grpc.MethodDesc{
		unaryMethod(queryServiceName, "GetSponsor", func() interface{} { return new(GetSponsorRequest) },
			func(srv interface{}, ctx context.Context, req interface{}) (interface{}, error) {
				return srv.(*queryServiceImpl).GetSponsor(ctx, req.(*GetSponsorRequest))
			}),
		unaryMethod(queryServiceName, "GetBalance", func() interface{} { return new(GetBalanceRequest) },
			func(srv interface{}, ctx context.Context, req interface{}) (interface{}, error) {
				return srv.(*queryServiceImpl).GetBalance(ctx, req.(*GetBalanceRequest))
			}),
		unaryMethod(queryServiceName, "GetBalances", func() interface{} { return new(GetBalancesRequest) },
			func(srv interface{}, ctx context.Context, req interface{}) (interface{}, error) {
				return srv.(*queryServiceImpl).GetBalances(ctx, req.(*GetBalancesRequest))
			}),
		unaryMethod(queryServiceName, "GetAssetTotal", func() interface{} { return new(GetAssetTotalRequest) },
			func(srv interface{}, ctx context.Context, req interface{}) (interface{}, error) {
				return srv.(*queryServiceImpl).GetAssetTotal(ctx, req.(*GetAssetTotalRequest))
			}),
		unaryMethod(queryServiceName, "GetLifetime", func() interface{} { return new(GetLifetimeRequest) },
			func(srv interface{}, ctx context.Context, req interface{}) (interface{}, error) {
				return srv.(*queryServiceImpl).GetLifetime(ctx, req.(*GetLifetimeRequest))
			}),
		unaryMethod(queryServiceName, "GetAdminState", func() interface{} { return new(GetAdminStateRequest) },
			func(srv interface{}, ctx context.Context, req interface{}) (interface{}, error) {
				return srv.(*queryServiceImpl).GetAdminState(ctx, req.(*GetAdminStateRequest))
			}),
		unaryMethod(queryServiceName, "ListRecords", func() interface{} { return new(ListRecordsRequest) },
			func(srv interface{}, ctx context.Context, req interface{}) (interface{}, error) {
				return srv.(*queryServiceImpl).ListRecords(ctx, req.(*ListRecordsRequest))
			}),
		unaryMethod(queryServiceName, "GetSystemStatus", func() interface{} { return new(GetSystemStatusRequest) },
			func(srv interface{}, ctx context.Context, req interface{}) (interface{}, error) {
				return srv.(*queryServiceImpl).GetSystemStatus(ctx, req.(*GetSystemStatusRequest))
			}),
	},
	Streams: []grpc.StreamDesc{},
}

func (s *queryServiceImpl) observe(endpoint string, start time.Time, err error) {
	if s.metrics == nil {
		return
	}
	s.metrics.QueryDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	if err != nil {
		s.metrics.QueryRequests.WithLabelValues(endpoint, "error").Inc()
		s.metrics.QueryErrors.WithLabelValues(endpoint, status.Code(err).String()).Inc()
	} else {
		s.metrics.QueryRequests.WithLabelValues(endpoint, "ok").Inc()
	}
}

func (s *queryServiceImpl) GetSponsor(ctx context.Context, req *GetSponsorRequest) (resp *query.SponsorResponse, err error) {
	start := time.Now()
	defer func() { s.observe("get_sponsor", start, err) }()

	if req.Beneficiary == "" {
		return nil, status.Error(codes.InvalidArgument, "beneficiary is required")
	}

	resp, err = s.qs.GetSponsor(ctx, req.Beneficiary)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "get sponsor: %v", err)
	}
	return resp, nil
}

func (s *queryServiceImpl) GetBalance(ctx context.Context, req *GetBalanceRequest) (resp *query.BalanceResponse, err error) {
	start := time.Now()
	defer func() { s.observe("get_balance", start, err) }()

	if req.Beneficiary == "" || req.Asset == "" {
		return nil, status.Error(codes.InvalidArgument, "beneficiary and asset are required")
	}

	resp, err = s.qs.GetBalance(ctx, req.Beneficiary, req.Asset)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "get balance: %v", err)
	}
	return resp, nil
}

func (s *queryServiceImpl) GetBalances(ctx context.Context, req *GetBalancesRequest) (resp *query.BalancesResponse, err error) {
	start := time.Now()
	defer func() { s.observe("get_balances", start, err) }()

	if req.Beneficiary == "" {
		return nil, status.Error(codes.InvalidArgument, "beneficiary is required")
	}

	resp, err = s.qs.GetBalances(ctx, req.Beneficiary)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "get balances: %v", err)
	}
	return resp, nil
}

func (s *queryServiceImpl) GetAssetTotal(ctx context.Context, req *GetAssetTotalRequest) (resp *query.AssetTotalResponse, err error) {
	start := time.Now()
	defer func() { s.observe("get_asset_total", start, err) }()

	if req.Asset == "" {
		return nil, status.Error(codes.InvalidArgument, "asset is required")
	}

	resp, err = s.qs.GetAssetTotal(ctx, req.Asset)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "get asset total: %v", err)
	}
	return resp, nil
}

func (s *queryServiceImpl) GetLifetime(ctx context.Context, req *GetLifetimeRequest) (resp *query.LifetimeResponse, err error) {
	start := time.Now()
	defer func() { s.observe("get_lifetime", start, err) }()

	if req.Beneficiary == "" {
		return nil, status.Error(codes.InvalidArgument, "beneficiary is required")
	}

	resp, err = s.qs.GetLifetime(ctx, req.Beneficiary)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "get lifetime: %v", err)
	}
	return resp, nil
}

func (s *queryServiceImpl) GetAdminState(ctx context.Context, req *GetAdminStateRequest) (resp *query.AdminStateResponse, err error) {
	start := time.Now()
	defer func() { s.observe("get_admin_state", start, err) }()

	resp, err = s.qs.GetAdminState(ctx)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "get admin state: %v", err)
	}
	return resp, nil
}

func (s *queryServiceImpl) ListRecords(ctx context.Context, req *ListRecordsRequest) (resp *ListRecordsResponse, err error) {
	start := time.Now()
	defer func() { s.observe("list_records", start, err) }()

	if req.Beneficiary == "" {
		return nil, status.Error(codes.InvalidArgument, "beneficiary is required")
	}

	pageSize := int(req.PageSize)
	if pageSize <= 0 || pageSize > 500 {
		pageSize = 100
	}

	var afterSeq *int64
	if req.FromSequence > 0 {
		afterSeq = &req.FromSequence
	}

	records, err := s.qs.GetRecords(ctx, req.Beneficiary, pageSize, afterSeq)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "list records: %v", err)
	}

	resp = &ListRecordsResponse{Records: records}
	if len(records) > 0 {
		resp.AsOfSequence = records[0].Sequence
	}
	return resp, nil
}

func (s *queryServiceImpl) GetSystemStatus(ctx context.Context, req *GetSystemStatusRequest) (resp *GetSystemStatusResponse, err error) {
	start := time.Now()
	defer func() { s.observe("get_system_status", start, err) }()

	lastSeq, err := s.snapMgr.GetLatestSequence(ctx)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "get latest sequence: %v", err)
	}

	return &GetSystemStatusResponse{
		State:         "ready",
		LastSequence:  lastSeq,
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
	}, nil
}

// ============================================================================
// IngestService
// ============================================================================

const ingestServiceName = "sponsorledger.ingest.v1.IngestService"

type ingestServiceImpl struct {
	svc *ingestion.GRPCIngestService
}

var ingestServiceDesc = grpc.ServiceDesc{
	ServiceName: ingestServiceName,
	HandlerType: (*interface{})(nil),
	Methods: []grpc.MethodDesc{
		unaryMethod(ingestServiceName, "SubmitCommand", func() interface{} { return new(SubmitCommandRequest) },
			func(srv interface{}, ctx context.Context, req interface{}) (interface{}, error) {
				return srv.(*ingestServiceImpl).SubmitCommand(ctx, req.(*SubmitCommandRequest))
			}),
	},
	Streams: []grpc.StreamDesc{},
}

func (s *ingestServiceImpl) SubmitCommand(ctx context.Context, req *SubmitCommandRequest) (*SubmitCommandResponse, error) {
	if req.CommandType == "" {
		return nil, status.Error(codes.InvalidArgument, "command_type is required")
	}
	if len(req.Payload) == 0 {
		return nil, status.Error(codes.InvalidArgument, "payload is required")
	}

	raw := ingestion.RawCommand{
		Subject: req.CommandType,
		Data:    req.Payload,
	}

	cmd, err := ingestion.ParseRawCommand(raw, req.CommandType)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "parse payload: %v", err)
	}

	// Same path as the typed inject helpers
	select {
	case s.svc.CommandChan() <- cmd:
		return &SubmitCommandResponse{
			Accepted:       true,
			IdempotencyKey: cmd.IdempotencyKey(),
		}, nil
	case <-ctx.Done():
		return nil, status.Error(codes.DeadlineExceeded, "context cancelled")
	}
}

// ============================================================================
// AdminService
// ============================================================================

const adminServiceName = "sponsorledger.admin.v1.AdminService"

type adminServiceImpl struct {
	db           *sql.DB
	snapMgr      *persistence.SnapshotManager
	queryService *query.QueryService
	log          zerolog.Logger
}

var adminServiceDesc = grpc.ServiceDesc{
	ServiceName: adminServiceName,
	HandlerType: (*interface{})(nil),
	Methods: []grpc.MethodDesc{
		unaryMethod(adminServiceName, "RebuildProjections", func() interface{} { return new(RebuildProjectionsRequest) },
			func(srv interface{}, ctx context.Context, req interface{}) (interface{}, error) {
				return srv.(*adminServiceImpl).RebuildProjections(ctx, req.(*RebuildProjectionsRequest))
			}),
		unaryMethod(adminServiceName, "GetAuditLogInfo", func() interface{} { return new(GetAuditLogInfoRequest) },
			func(srv interface{}, ctx context.Context, req interface{}) (interface{}, error) {
				return srv.(*adminServiceImpl).GetAuditLogInfo(ctx, req.(*GetAuditLogInfoRequest))
			}),
		unaryMethod(adminServiceName, "VerifyIntegrity", func() interface{} { return new(VerifyIntegrityRequest) },
			func(srv interface{}, ctx context.Context, req interface{}) (interface{}, error) {
				return srv.(*adminServiceImpl).VerifyIntegrity(ctx, req.(*VerifyIntegrityRequest))
			}),
	},
	Streams: []grpc.StreamDesc{},
}

func (s *adminServiceImpl) RebuildProjections(ctx context.Context, req *RebuildProjectionsRequest) (*RebuildProjectionsResponse, error) {
	if err := projection.RebuildProjections(ctx, s.db, s.log); err != nil {
		return nil, status.Errorf(codes.Internal, "rebuild failed: %v", err)
	}
	return &RebuildProjectionsResponse{
		Started: true,
		TaskID:  "rebuild-sync",
	}, nil
}

func (s *adminServiceImpl) GetAuditLogInfo(ctx context.Context, req *GetAuditLogInfoRequest) (*GetAuditLogInfoResponse, error) {
	latestSeq, err := s.snapMgr.GetLatestSequence(ctx)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "get latest sequence: %v", err)
	}

	return &GetAuditLogInfoResponse{
		LastSequence: latestSeq,
	}, nil
}

func (s *adminServiceImpl) VerifyIntegrity(ctx context.Context, req *VerifyIntegrityRequest) (*VerifyIntegrityResponse, error) {
	report, err := s.queryService.VerifyIntegrity(ctx)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "verify integrity: %v", err)
	}

	resp := &VerifyIntegrityResponse{
		Passed:         report.IsHealthy,
		RecordsChecked: report.RecordsChecked,
	}

	if !report.IsHealthy && len(report.HashChainBreaks) > 0 {
		resp.FirstMismatchSequence = report.HashChainBreaks[0]
		resp.ErrorDetail = fmt.Sprintf("%d hash chain breaks", len(report.HashChainBreaks))
	}

	return resp, nil
}
