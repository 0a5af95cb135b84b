package ipc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"os"
	"sync"

	"log/slog"

	"snapvault/internal/capture"
	"snapvault/internal/daemon"
	"snapvault/internal/export"
	"snapvault/internal/logging"
	"snapvault/internal/mediastore"
)

// Server exposes daemon control via JSON-RPC over a Unix domain socket.
type Server struct {
	path      string
	daemon    *daemon.Daemon
	logger    *slog.Logger
	listener  net.Listener
	rpcServer *rpc.Server

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewServer configures the IPC server at the given socket path.
func NewServer(ctx context.Context, path string, d *daemon.Daemon, logger *slog.Logger) (*Server, error) {
	if d == nil {
		return nil, errors.New("ipc server requires daemon")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("remove existing socket: %w", err)
	}

	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen on socket: %w", err)
	}

	rpcServer := rpc.NewServer()
	srv := &service{daemon: d, logger: logger, ctx: ctx}
	if err := rpcServer.RegisterName("Snapvault", srv); err != nil {
		listener.Close()
		return nil, fmt.Errorf("register rpc service: %w", err)
	}

	serverCtx, cancel := context.WithCancel(ctx)
	return &Server{
		path:      path,
		daemon:    d,
		logger:    logger,
		listener:  listener,
		rpcServer: rpcServer,
		ctx:       serverCtx,
		cancel:    cancel,
	}, nil
}

// Serve starts accepting RPC connections until the context is canceled.
func (s *Server) Serve() {
	s.logger.Debug("IPC server listening", logging.String("socket", s.path))
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			conn, err := s.listener.Accept()
			if err != nil {
				select {
				case <-s.ctx.Done():
					return
				default:
				}
				s.logger.Warn("accept failed",
					logging.Error(err),
					logging.String(logging.FieldEventType, "ipc_accept_failed"))
				continue
			}
			s.wg.Add(1)
			go func(c net.Conn) {
				defer s.wg.Done()
				s.rpcServer.ServeCodec(jsonrpc.NewServerCodec(c))
			}(conn)
		}
	}()
}

// Close stops the server and removes the socket file.
func (s *Server) Close() {
	s.cancel()
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.wg.Wait()
	if err := os.RemoveAll(s.path); err != nil {
		s.logger.Warn("failed to remove socket",
			logging.String("socket", s.path),
			logging.Error(err),
			logging.String(logging.FieldEventType, "ipc_socket_cleanup_failed"))
	}
}

type service struct {
	daemon *daemon.Daemon
	logger *slog.Logger
	ctx    context.Context
}

func (s *service) log() *slog.Logger {
	if s.logger == nil {
		return logging.NewNop()
	}
	return s.logger.With(logging.String(logging.FieldComponent, "ipc"))
}

func sessionInfo(state capture.State) SessionInfo {
	return SessionInfo{
		Active:              state.Active,
		CollectionKey:       state.CollectionKey,
		RequireConfirmation: state.RequireConfirmation,
	}
}

func itemInfo(item mediastore.Item) ItemInfo {
	return ItemInfo{
		Collection: item.Collection,
		Name:       item.Name,
		Path:       item.Path,
		Size:       item.Size,
	}
}

func exportInfo(status daemon.ExportStatus) ExportInfo {
	info := ExportInfo{
		ID:           status.ID,
		Username:     status.Username,
		Running:      status.Running,
		Current:      status.Current,
		Total:        status.Total,
		CurrentLabel: status.CurrentLabel,
		StartedAt:    status.StartedAt,
		FinishedAt:   status.FinishedAt,
		ErrorMessage: status.ErrorMessage,
	}
	if len(status.Results) > 0 {
		info.Results = make([]ExportItem, 0, len(status.Results))
		for _, res := range status.Results {
			info.Results = append(info.Results, exportItem(res))
		}
	}
	return info
}

func exportItem(res export.Result) ExportItem {
	return ExportItem{
		Key:          res.Key,
		Label:        res.Label,
		FileCount:    res.FileCount,
		Success:      res.Success,
		ArchivePath:  res.ArchivePath,
		ErrorMessage: res.ErrorMessage,
	}
}

func (s *service) Start(_ StartRequest, resp *StartResponse) error {
	s.log().Debug("daemon start requested")
	if err := s.daemon.Start(s.ctx); err != nil {
		resp.Started = false
		resp.Message = err.Error()
		return nil
	}
	resp.Started = true
	resp.Message = "daemon started"
	s.log().Info("daemon started via IPC",
		logging.String(logging.FieldEventType, "daemon_start"))
	return nil
}

func (s *service) Stop(_ StopRequest, resp *StopResponse) error {
	s.log().Debug("daemon stop requested")
	s.daemon.Stop()
	resp.Stopped = true
	s.log().Info("daemon stopped via IPC",
		logging.String(logging.FieldEventType, "daemon_stop"))
	return nil
}

func (s *service) Status(_ StatusRequest, resp *StatusResponse) error {
	status := s.daemon.Status(s.ctx)
	resp.Running = status.Running
	resp.PID = status.PID
	resp.Session = sessionInfo(status.Session)
	resp.HasPending = status.HasPending
	resp.PendingCollection = status.PendingCollection
	resp.PendingStagedAt = status.PendingStagedAt
	resp.PreferenceDBPath = status.PreferenceDBPath
	resp.LockPath = status.LockFilePath
	resp.CaptureDir = status.CaptureDir
	resp.ExportDir = status.ExportDir
	if status.Export != nil {
		info := exportInfo(*status.Export)
		resp.Export = &info
	}
	return nil
}

func (s *service) SessionStart(_ SessionStartRequest, resp *SessionStartResponse) error {
	if err := s.daemon.StartSession(s.ctx); err != nil {
		return err
	}
	resp.Session = sessionInfo(s.daemon.SessionState())
	s.log().Info("capture session started via IPC",
		logging.String(logging.FieldEventType, "session_start"))
	return nil
}

func (s *service) SessionStop(_ SessionStopRequest, resp *SessionStopResponse) error {
	s.daemon.StopSession()
	resp.Session = sessionInfo(s.daemon.SessionState())
	s.log().Info("capture session stopped via IPC",
		logging.String(logging.FieldEventType, "session_stop"))
	return nil
}

func (s *service) Capture(req CaptureRequest, resp *CaptureResponse) error {
	result, err := s.daemon.CaptureNow(s.ctx, req.Collection)
	if err != nil {
		return err
	}
	resp.Staged = result.Staged
	if !result.Staged {
		resp.Item = itemInfo(result.Item)
	}
	return nil
}

func (s *service) ConfirmPending(_ ConfirmPendingRequest, resp *ConfirmPendingResponse) error {
	item, err := s.daemon.ConfirmPending(s.ctx)
	if err != nil {
		return err
	}
	resp.Item = itemInfo(item)
	return nil
}

func (s *service) RejectPending(_ RejectPendingRequest, resp *RejectPendingResponse) error {
	s.daemon.RejectPending()
	resp.Rejected = true
	return nil
}

func (s *service) SelectCollection(req SelectCollectionRequest, resp *SelectCollectionResponse) error {
	resp.Key = s.daemon.SelectCollection(req.Key)
	return nil
}

func (s *service) SetConfirmation(req SetConfirmationRequest, resp *SetConfirmationResponse) error {
	if err := s.daemon.SetRequireConfirmation(s.ctx, req.Enabled); err != nil {
		return err
	}
	resp.Session = sessionInfo(s.daemon.SessionState())
	return nil
}

func (s *service) CollectionList(_ CollectionListRequest, resp *CollectionListResponse) error {
	cols, err := s.daemon.ListCollections(s.ctx)
	if err != nil {
		return err
	}
	keys := make([]string, 0, len(cols))
	for _, col := range cols {
		keys = append(keys, col.Key)
	}
	counts, err := s.daemon.CollectionCounts(s.ctx, keys)
	if err != nil {
		return err
	}
	resp.Collections = make([]CollectionInfo, 0, len(cols))
	for _, col := range cols {
		resp.Collections = append(resp.Collections, CollectionInfo{
			Key:   col.Key,
			Label: col.Label,
			Count: counts[col.Key],
		})
	}
	return nil
}

func (s *service) CollectionAdd(req CollectionAddRequest, resp *CollectionAddResponse) error {
	updated, err := s.daemon.AddCollection(s.ctx, req.Label)
	if err != nil {
		return err
	}
	resp.Collections = make([]CollectionInfo, 0, len(updated))
	for _, col := range updated {
		resp.Collections = append(resp.Collections, CollectionInfo{Key: col.Key, Label: col.Label})
	}
	s.log().Info("collection added via IPC",
		logging.String(logging.FieldEventType, "collection_add"))
	return nil
}

func (s *service) ExportStart(req ExportStartRequest, resp *ExportStartResponse) error {
	jobID, err := s.daemon.StartExport(s.ctx, req.Username)
	if err != nil {
		return err
	}
	resp.JobID = jobID
	s.log().Info("export batch started via IPC",
		logging.String(logging.FieldEventType, "export_start"))
	return nil
}

func (s *service) ExportStatus(_ ExportStatusRequest, resp *ExportStatusResponse) error {
	status, ok := s.daemon.ExportStatus()
	resp.Found = ok
	if ok {
		resp.Export = exportInfo(status)
	}
	return nil
}

func (s *service) LastExportName(_ LastExportNameRequest, resp *LastExportNameResponse) error {
	name, err := s.daemon.LastExportName(s.ctx)
	if err != nil {
		return err
	}
	resp.Username = name
	return nil
}

func (s *service) TestNotification(_ TestNotificationRequest, resp *TestNotificationResponse) error {
	if err := s.daemon.TestNotification(s.ctx); err != nil {
		resp.Sent = false
		resp.Message = err.Error()
		return nil
	}
	resp.Sent = true
	resp.Message = "notification sent"
	return nil
}
