package server

import (
	"errors"
	"fmt"
	"time"

	"github.com/derktes/ir-signal-workbench/importer"
	"github.com/derktes/ir-signal-workbench/irsignal"
	"github.com/derktes/ir-signal-workbench/table"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	errTableNotFound     = errors.New("table not found")
	errAlreadySubscribed = errors.New("already subscribed")
	errNotSubscribed     = errors.New("not subscribed")
)

const listenerBuffer = 16

type storedTable struct {
	id           string
	source       string
	format       string
	frequency    float64
	hasFrequency bool
	created      time.Time
	skipped      []string
	table        *table.Table
}

// refreshFrequency recomputes the mean carrier after rows changed.
func (t *storedTable) refreshFrequency() {
	t.frequency, t.hasFrequency = importer.MeanFrequency(t.table.Collection())
}

type tableListener struct {
	subscriber string
	events     chan tableEvent
}

type tableDatabase struct {
	tables     map[string]*storedTable
	order      []string
	collectors map[string]string
	listeners  []tableListener
	logger     *zap.Logger
}

type tableCRUD interface {
	insert(source string, result *importer.Result) *storedTable
	get(id string) (*storedTable, error)
	list() []*storedTable
	remove(id string) error
	collectorTable(collectorID string) *storedTable
	getCollectorIDList() []string
	changed(ev tableEvent)
}

type tableNotifier interface {
	notify(subscriber string) (<-chan tableEvent, error)
	unNotify(subscriber string) error
}

func newDatabase(logger *zap.Logger) *tableDatabase {
	return &tableDatabase{
		tables:     make(map[string]*storedTable),
		collectors: make(map[string]string),
		logger:     logger,
	}
}

func (db *tableDatabase) notify(subscriber string) (<-chan tableEvent, error) {
	for _, l := range db.listeners {
		if l.subscriber == subscriber {
			return nil, fmt.Errorf("%w: %s", errAlreadySubscribed, subscriber)
		}
	}
	db.listeners = append(db.listeners, tableListener{subscriber, make(chan tableEvent, listenerBuffer)})
	return db.listeners[len(db.listeners)-1].events, nil
}

func (db *tableDatabase) unNotify(subscriber string) error {
	for i, l := range db.listeners {
		if l.subscriber == subscriber {
			db.listeners = append(db.listeners[:i], db.listeners[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: %s", errNotSubscribed, subscriber)
}

func (db *tableDatabase) insert(source string, result *importer.Result) *storedTable {
	t := &storedTable{
		id:           uuid.NewString(),
		source:       source,
		format:       result.Format,
		frequency:    result.Frequency,
		hasFrequency: result.HasFrequency,
		created:      time.Now(),
		table:        table.New(result.Collection),
	}
	for _, s := range result.Skipped {
		t.skipped = append(t.skipped, s.Error())
	}
	db.tables[t.id] = t
	db.order = append(db.order, t.id)
	db.logger.Info("Stored table", zap.String("id", t.id), zap.String("source", source), zap.Int("rows", t.table.RowCount()))
	db.changed(tableEvent{TableID: t.id, Op: opImport})
	return t
}

func (db *tableDatabase) get(id string) (*storedTable, error) {
	t, ok := db.tables[id]
	if !ok {
		return nil, fmt.Errorf("%w: '%s'", errTableNotFound, id)
	}
	return t, nil
}

func (db *tableDatabase) list() []*storedTable {
	out := make([]*storedTable, 0, len(db.order))
	for _, id := range db.order {
		out = append(out, db.tables[id])
	}
	return out
}

func (db *tableDatabase) remove(id string) error {
	if _, ok := db.tables[id]; !ok {
		return fmt.Errorf("%w: '%s'", errTableNotFound, id)
	}
	delete(db.tables, id)
	for i, o := range db.order {
		if o == id {
			db.order = append(db.order[:i], db.order[i+1:]...)
			break
		}
	}
	for cid, tid := range db.collectors {
		if tid == id {
			delete(db.collectors, cid)
		}
	}
	db.changed(tableEvent{TableID: id, Op: opRemove})
	return nil
}

// collectorTable returns the flat table frames from collectorID go to,
// creating it on first use.
func (db *tableDatabase) collectorTable(collectorID string) *storedTable {
	if id, ok := db.collectors[collectorID]; ok {
		return db.tables[id]
	}
	db.logger.Info("Collector not found, creating new table", zap.String("collectorId", collectorID))
	t := &storedTable{
		id:      uuid.NewString(),
		source:  "collector:" + collectorID,
		format:  "frame",
		created: time.Now(),
		table:   table.Empty(irsignal.Flat),
	}
	db.tables[t.id] = t
	db.order = append(db.order, t.id)
	db.collectors[collectorID] = t.id
	return t
}

func (db *tableDatabase) getCollectorIDList() []string {
	ids := make([]string, 0, len(db.collectors))
	for _, id := range db.order {
		for cid, tid := range db.collectors {
			if tid == id {
				ids = append(ids, cid)
			}
		}
	}
	return ids
}

// changed fans ev out to every listener. A listener whose buffer is full
// misses the event rather than stalling the owner of the database.
func (db *tableDatabase) changed(ev tableEvent) {
	for _, l := range db.listeners {
		select {
		case l.events <- ev:
		default:
			db.logger.Warn("Dropping event for slow subscriber", zap.String("subscriber", l.subscriber), zap.String("op", ev.Op))
		}
	}
}
