package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/derktes/ir-signal-workbench/analyzer"
	"github.com/derktes/ir-signal-workbench/config"
	"github.com/derktes/ir-signal-workbench/importer"
	"github.com/derktes/ir-signal-workbench/logging"
	"github.com/derktes/ir-signal-workbench/source"
	"go.uber.org/zap"
)

// Server exposes signal tables over HTTP. Every table operation runs while
// holding the database, so row indices never shift under a request.
type Server struct {
	props    config.Properties
	logger   *zap.Logger
	pipeline *importer.Pipeline
	reader   *source.Reader
	decoder  analyzer.Decoder
	nec      *analyzer.NEC

	// dbLock and dbUnlock share one slot: receiving takes ownership of the
	// database, sending it back releases it.
	dbLock   chan tableCRUD
	dbUnlock chan<- tableCRUD

	originPatterns []string
}

func New(props config.Properties, logger *zap.Logger) (*Server, error) {
	logger = logging.OrNop(logger)
	reader, err := source.NewReader(props.Import.Encoding, logger, source.WithMaxDecodedBytes(props.Import.MaxDecodedBytes))
	if err != nil {
		return nil, err
	}
	nec := analyzer.NewNEC(logger)
	s := &Server{
		props:          props,
		logger:         logger,
		pipeline:       importer.NewPipeline(props.Import, logger),
		reader:         reader,
		decoder:        nec,
		nec:            nec,
		dbLock:         make(chan tableCRUD, 1),
		originPatterns: []string{"localhost:*", "192.168.*.*:*"},
	}
	s.dbUnlock = s.dbLock
	s.dbLock <- newDatabase(logger)
	return s, nil
}

// Handler returns the route table.
//
//	POST   /tables                      import a capture file (body), ?name=&encoding=
//	GET    /tables                      list tables
//	GET    /tables/{id}                 rows, ?sort=<col>&desc=true for a sorted view
//	DELETE /tables/{id}                 drop a table
//	PUT    /tables/{id}/cells           edit one cell
//	POST   /tables/{id}/rows            add an empty row
//	DELETE /tables/{id}/rows?row=       delete rows
//	POST   /tables/{id}/move            move a row
//	POST   /tables/{id}/normalize       canonical rendering of typed durations
//	GET    /tables/{id}/print?row=      one row as text
//	GET    /tables/{id}/export?sep=     tab or comma separated export
//	POST   /tables/{id}/analyze         run the decoder over every row
//	GET    /tables/stream               websocket of change events
//	POST   /ir/frame                    collector frame ingest
//	GET    /ir/collectors               known collector ids
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /tables", s.importHandler)
	mux.HandleFunc("GET /tables", s.listHandler)
	mux.HandleFunc("GET /tables/stream", s.tableStreamHandler)
	mux.HandleFunc("GET /tables/{id}", s.getHandler)
	mux.HandleFunc("DELETE /tables/{id}", s.removeHandler)
	mux.HandleFunc("PUT /tables/{id}/cells", s.editHandler)
	mux.HandleFunc("POST /tables/{id}/rows", s.addHandler)
	mux.HandleFunc("DELETE /tables/{id}/rows", s.deleteRowsHandler)
	mux.HandleFunc("POST /tables/{id}/move", s.moveHandler)
	mux.HandleFunc("POST /tables/{id}/normalize", s.normalizeHandler)
	mux.HandleFunc("GET /tables/{id}/print", s.printHandler)
	mux.HandleFunc("GET /tables/{id}/export", s.exportHandler)
	mux.HandleFunc("POST /tables/{id}/analyze", s.analyzeHandler)
	mux.HandleFunc("POST /ir/frame", s.frameHandler)
	mux.HandleFunc("GET /ir/collectors", s.collectorQueryHandler)
	return mux
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{Addr: s.props.Server.Address, Handler: s.Handler()}
	srv.RegisterOnShutdown(func() {
		s.logger.Info("Shutting down server")
	})
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("Shutdown failed", zap.Error(err))
		}
	}()
	s.logger.Info("Server started", zap.String("address", srv.Addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
