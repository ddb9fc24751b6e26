package server

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/derktes/ir-signal-workbench/capture"
	"github.com/derktes/ir-signal-workbench/importer"
	"github.com/derktes/ir-signal-workbench/irsignal"
	"github.com/derktes/ir-signal-workbench/source"
	"github.com/derktes/ir-signal-workbench/table"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

const maxUploadBytes = 32 << 20

func (s *Server) tableStreamHandler(w http.ResponseWriter, r *http.Request) {
	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: s.originPatterns})
	if err != nil {
		s.logger.Warn("Websocket accept failed", zap.String("remote", r.RemoteAddr), zap.Error(err))
		return
	}
	s.logger.Info("Accepted websocket request", zap.String("remote", r.RemoteAddr))
	defer s.logger.Info("Closing websocket connection", zap.String("remote", r.RemoteAddr))
	defer c.Close(websocket.StatusNormalClosure, "Handler exits")
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	subscriber := getSubscriberID(r.RemoteAddr)
	db := <-s.dbLock
	events, err := db.(tableNotifier).notify(subscriber)
	s.dbUnlock <- db
	if err != nil {
		s.logger.Debug("Subscription refused", zap.Error(err))
		c.Close(websocket.StatusPolicyViolation, "Already subscribed")
		return
	}
	defer func() {
		db := <-s.dbLock
		if err := db.(tableNotifier).unNotify(subscriber); err != nil {
			s.logger.Debug("Unsubscribe failed", zap.Error(err))
		}
		s.dbUnlock <- db
	}()

	ctx = c.CloseRead(ctx)
	for {
		select {
		case ev := <-events:
			if err := writeEvent(ctx, c, ev); err != nil {
				s.logger.Warn("Writing event failed", zap.String("remote", r.RemoteAddr), zap.Error(err))
				return
			}
		case <-ctx.Done():
			s.logger.Debug("Websocket context done", zap.Error(ctx.Err()))
			return
		}
	}
}

func (s *Server) importHandler(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		name = "upload"
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxUploadBytes))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("reading request body: %w", err))
		return
	}
	reader := s.reader
	if enc := r.URL.Query().Get("encoding"); enc != "" {
		if reader, err = source.NewReader(enc, s.logger, source.WithMaxDecodedBytes(s.props.Import.MaxDecodedBytes)); err != nil {
			s.writeError(w, http.StatusBadRequest, err)
			return
		}
	}
	text, err := reader.Decode(name, body)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	result, err := s.pipeline.Import(text, name)
	if err != nil {
		s.logger.Info("Import rejected", zap.String("name", name), zap.Error(err))
		s.writeError(w, http.StatusUnprocessableEntity, err)
		return
	}

	db := <-s.dbLock
	t := db.insert(name, result)
	resp := newTableResponse(t, t.table.View())
	s.dbUnlock <- db
	s.writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) listHandler(w http.ResponseWriter, r *http.Request) {
	db := <-s.dbLock
	tables := db.list()
	summaries := make([]tableSummary, len(tables))
	for i, t := range tables {
		summaries[i] = summarize(t)
	}
	s.dbUnlock <- db
	s.writeJSON(w, http.StatusOK, summaries)
}

func (s *Server) getHandler(w http.ResponseWriter, r *http.Request) {
	db := <-s.dbLock
	defer func() { s.dbUnlock <- db }()
	t, err := db.get(r.PathValue("id"))
	if err != nil {
		s.writeError(w, http.StatusNotFound, err)
		return
	}
	view := t.table.View()
	if col := r.URL.Query().Get("sort"); col != "" {
		n, err := strconv.Atoi(col)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, fmt.Errorf("sort column %q: %w", col, err))
			return
		}
		desc, _ := strconv.ParseBool(r.URL.Query().Get("desc"))
		if view, err = t.table.SortedView(n, desc); err != nil {
			s.writeError(w, http.StatusBadRequest, err)
			return
		}
	}
	s.writeJSON(w, http.StatusOK, newTableResponse(t, view))
}

func (s *Server) removeHandler(w http.ResponseWriter, r *http.Request) {
	db := <-s.dbLock
	defer func() { s.dbUnlock <- db }()
	if err := db.remove(r.PathValue("id")); err != nil {
		s.writeError(w, http.StatusNotFound, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) editHandler(w http.ResponseWriter, r *http.Request) {
	var req editRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	db := <-s.dbLock
	defer func() { s.dbUnlock <- db }()
	t, err := db.get(r.PathValue("id"))
	if err != nil {
		s.writeError(w, http.StatusNotFound, err)
		return
	}
	if err := t.table.ApplyEdit(req.Row, req.Column, req.Value); err != nil {
		s.logger.Debug("Cell edit rejected", zap.String("table", t.id), zap.Error(err))
		s.writeError(w, statusFor(err), err)
		return
	}
	text, _ := t.table.CellText(req.Row, req.Column)
	db.changed(tableEvent{TableID: t.id, Op: opEdit, Rows: []int{req.Row}})
	s.writeJSON(w, http.StatusOK, cellResponse{Row: req.Row, Text: text})
}

func (s *Server) addHandler(w http.ResponseWriter, r *http.Request) {
	var req addRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	db := <-s.dbLock
	defer func() { s.dbUnlock <- db }()
	t, err := db.get(r.PathValue("id"))
	if err != nil {
		s.writeError(w, http.StatusNotFound, err)
		return
	}
	row := t.table.AddEmpty(req.Name)
	t.refreshFrequency()
	db.changed(tableEvent{TableID: t.id, Op: opAdd, Rows: []int{row}})
	s.writeJSON(w, http.StatusCreated, cellResponse{Row: row, Text: req.Name})
}

func (s *Server) deleteRowsHandler(w http.ResponseWriter, r *http.Request) {
	rows, err := rowsParam(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	db := <-s.dbLock
	defer func() { s.dbUnlock <- db }()
	t, err := db.get(r.PathValue("id"))
	if err != nil {
		s.writeError(w, http.StatusNotFound, err)
		return
	}
	if err := t.table.DeleteRows(rows); err != nil {
		s.writeError(w, statusFor(err), err)
		return
	}
	t.refreshFrequency()
	db.changed(tableEvent{TableID: t.id, Op: opDelete, Rows: rows})
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) moveHandler(w http.ResponseWriter, r *http.Request) {
	var req moveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	db := <-s.dbLock
	defer func() { s.dbUnlock <- db }()
	t, err := db.get(r.PathValue("id"))
	if err != nil {
		s.writeError(w, http.StatusNotFound, err)
		return
	}
	to := req.Row
	switch {
	case req.To != nil:
		to = *req.To
		err = t.table.MoveRow(req.Row, to)
	case req.Direction == "up":
		to, err = t.table.MoveUp(req.Row)
	case req.Direction == "down":
		to, err = t.table.MoveDown(req.Row)
	default:
		err = errors.New("move needs a target row or a direction of up or down")
	}
	if err != nil {
		s.writeError(w, statusFor(err), err)
		return
	}
	db.changed(tableEvent{TableID: t.id, Op: opMove, Rows: []int{req.Row, to}})
	s.writeJSON(w, http.StatusOK, cellResponse{Row: to})
}

func (s *Server) normalizeHandler(w http.ResponseWriter, r *http.Request) {
	var req normalizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	db := <-s.dbLock
	defer func() { s.dbUnlock <- db }()
	t, err := db.get(r.PathValue("id"))
	if err != nil {
		s.writeError(w, http.StatusNotFound, err)
		return
	}
	text, err := t.table.Normalize(req.Column, req.Text)
	if err != nil {
		s.writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	s.writeJSON(w, http.StatusOK, cellResponse{Row: -1, Text: text})
}

func (s *Server) printHandler(w http.ResponseWriter, r *http.Request) {
	rows, err := rowsParam(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	row, err := table.RequireOne(rows)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	db := <-s.dbLock
	defer func() { s.dbUnlock <- db }()
	t, err := db.get(r.PathValue("id"))
	if err != nil {
		s.writeError(w, http.StatusNotFound, err)
		return
	}
	text, err := t.table.ToText(row)
	if err != nil {
		s.writeError(w, statusFor(err), err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	io.WriteString(w, text+"\n")
}

func (s *Server) exportHandler(w http.ResponseWriter, r *http.Request) {
	sep, contentType := "\t", "text/tab-separated-values"
	switch r.URL.Query().Get("sep") {
	case "", "tab":
	case "comma":
		sep, contentType = ",", "text/csv"
	default:
		s.writeError(w, http.StatusBadRequest, errors.New("sep must be tab or comma"))
		return
	}
	db := <-s.dbLock
	defer func() { s.dbUnlock <- db }()
	t, err := db.get(r.PathValue("id"))
	if err != nil {
		s.writeError(w, http.StatusNotFound, err)
		return
	}
	var buf bytes.Buffer
	if err := t.table.Export(&buf, sep); err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", contentType+"; charset=utf-8")
	w.Write(buf.Bytes())
}

func (s *Server) analyzeHandler(w http.ResponseWriter, r *http.Request) {
	db := <-s.dbLock
	t, err := db.get(r.PathValue("id"))
	var (
		seqs      []irsignal.NamedSequence
		frequency float64
	)
	if err == nil {
		seqs = t.table.Sequences()
		if t.hasFrequency {
			frequency = t.frequency
		}
	}
	s.dbUnlock <- db
	if err != nil {
		s.writeError(w, http.StatusNotFound, err)
		return
	}

	report, err := s.decoder.Analyze(r.Context(), seqs, frequency, s.props.Analyzer)
	if err != nil {
		s.writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	s.writeJSON(w, http.StatusOK, newReportResponse(report))
}

// frameHandler stores a collector frame as a new row of that collector's
// table, named after its decode when there is one.
func (s *Server) frameHandler(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxUploadBytes))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("reading request body: %w", err))
		return
	}
	tagged, err := capture.ParseTaggedFrame(body)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	if tagged.CollectorID == "" {
		s.writeError(w, http.StatusBadRequest, errors.New("collectorId is required"))
		return
	}
	seq, err := tagged.Frame.Sequence()
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	s.logger.Debug("Unmarshalled frame", zap.String("collectorId", tagged.CollectorID), zap.Int("pairs", len(tagged.Frame.Data)))

	decoded := capture.DecodedFrame{
		CollectorID:  tagged.CollectorID,
		ProtocolName: "Unknown",
		FrameSize:    len(tagged.Frame.Data),
	}
	pulses := tagged.Frame.Pulses()
	if len(pulses) > 0 {
		decoded.Header, decoded.RawPulses = pulses[0], pulses[1:]
	}
	if match, ok := s.nec.DecodeSequence(seq, s.props.Analyzer.Frequency, s.props.Analyzer); ok {
		decoded.ProtocolName = match.Protocol
		decoded.Value = match.Value
	}

	db := <-s.dbLock
	defer func() { s.dbUnlock <- db }()
	t := db.collectorTable(tagged.CollectorID)
	decoded.Name = fmt.Sprintf("frame_%d", t.table.RowCount()+1)
	if decoded.Value != "" {
		decoded.Name = decoded.ProtocolName + "_" + decoded.Value
	}
	row, err := t.table.AddRow(decoded.Name, irsignal.NewFlatSignal(seq))
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.logger.Info("Inserted frame",
		zap.String("collectorId", tagged.CollectorID),
		zap.String("protocol", decoded.ProtocolName),
		zap.String("value", decoded.Value),
		zap.Int("rows", t.table.RowCount()))
	db.changed(tableEvent{TableID: t.id, Op: opFrame, Rows: []int{row}, Frame: &decoded})
	s.writeJSON(w, http.StatusCreated, decoded)
}

func (s *Server) collectorQueryHandler(w http.ResponseWriter, r *http.Request) {
	db := <-s.dbLock
	ids := db.getCollectorIDList()
	s.dbUnlock <- db
	s.writeJSON(w, http.StatusOK, ids)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	output, err := json.Marshal(v)
	if err != nil {
		s.logger.Error("Encoding response failed", zap.Error(err))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Add("Content-Type", "application/json")
	w.Header().Add("Access-Control-Allow-Origin", "*")
	w.WriteHeader(status)
	w.Write(output)
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	resp := errorResponse{Error: err.Error()}
	var ie *importer.ImportError
	if errors.As(err, &ie) {
		for _, a := range ie.Attempts {
			resp.Attempts = append(resp.Attempts, a.Error())
		}
	}
	s.writeJSON(w, status, resp)
}

func statusFor(err error) int {
	if errors.Is(err, table.ErrCellEditRejected) {
		return http.StatusUnprocessableEntity
	}
	return http.StatusBadRequest
}

func rowsParam(r *http.Request) ([]int, error) {
	values := r.URL.Query()["row"]
	rows := make([]int, 0, len(values))
	for _, v := range values {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("row %q: %w", v, err)
		}
		rows = append(rows, n)
	}
	return rows, nil
}

func summarize(t *storedTable) tableSummary {
	return tableSummary{
		ID:           t.id,
		Source:       t.source,
		Format:       t.format,
		Kind:         t.table.Kind().String(),
		Rows:         t.table.RowCount(),
		Frequency:    t.frequency,
		HasFrequency: t.hasFrequency,
		Created:      t.created.Format(time.RFC3339),
	}
}

func newTableResponse(t *storedTable, view table.View) tableResponse {
	resp := tableResponse{tableSummary: summarize(t), Skipped: t.skipped}
	cols := t.table.Columns()
	for _, c := range cols {
		resp.Columns = append(resp.Columns, columnResponse{c.Label, c.Width, c.Type.String(), c.Editable})
	}
	for _, row := range view.Rows() {
		cells := make([]string, 0, len(cols))
		for i, c := range cols {
			if c.Type == table.SignalColumn {
				continue
			}
			text, _ := t.table.CellText(row, i)
			cells = append(cells, text)
		}
		resp.Rows = append(resp.Rows, rowResponse{Index: row, Cells: cells})
	}
	return resp
}

func getSubscriberID(data string) string {
	h := sha1.Sum([]byte(data))
	return hex.EncodeToString(h[:])
}

func writeEvent(ctx context.Context, c *websocket.Conn, ev tableEvent) error {
	ctx, cancelFunc := context.WithTimeout(ctx, 1*time.Second)
	defer cancelFunc()

	return wsjson.Write(ctx, c, ev)
}
