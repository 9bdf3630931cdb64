package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"sync/atomic"
	"time"

	"github.com/ValentinKolb/dCrate/lib/digest"
	"github.com/ValentinKolb/dCrate/rpc/common"
	"github.com/ValentinKolb/dCrate/rpc/serializer"
	"github.com/ValentinKolb/dCrate/rpc/transport"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/pkg/errors"
	"github.com/puzpuzpuz/xsync/v3"
)

var Logger = logger.GetLogger("server")

// CrateDB error codes used by the emulator
const (
	CodeParseError      = 4000
	CodeBlobsDisabled   = 4007
	CodeUnknownRelation = 4041
	CodeRelationExists  = 4093
	CodeDigestMismatch  = 4095
	CodeUnavailable     = 5030
)

// maxStatementBody limits the size of a /_sql request body
const maxStatementBody = 32 << 20

var (
	createBlobTableRe = regexp.MustCompile(`(?i)^\s*create\s+blob\s+table\s+"?(\w+)"?`)
	dropBlobTableRe   = regexp.MustCompile(`(?i)^\s*drop\s+blob\s+table\s+(if\s+exists\s+)?"?(\w+)"?`)
)

// blobTable holds the blobs of one container keyed by digest
type blobTable struct {
	blobs *xsync.MapOf[string, []byte]
}

// NewNode creates a new emulator node
// It takes a config, transport and serializer as parameters
//
// Usage:
//
//	n := server.NewNode(
//		config,
//		http.NewHttpServerTransport(),
//		serializer.NewJSONSerializer(),
//	)
//
//	if err := n.Serve(); err != nil {
//		panic(err)
//	}
func NewNode(
	config common.ServerConfig,
	transport transport.IRPCServerTransport,
	serializer serializer.IRPCSerializer,
) *Node {
	n := &Node{
		config:     config,
		transport:  transport,
		serializer: serializer,
		handlers:   xsync.NewMapOf[string, StatementHandler](),
		tables:     xsync.NewMapOf[string, *blobTable](),
	}

	n.HandleStatement("select 1", func(string, []any) (*common.SQLResponse, error) {
		return ResultOf([]string{"1"}, []any{9}, []any{1}), nil
	})

	Logger.Infof("Created emulator node")
	return n
}

// Node emulates the HTTP endpoint of a single CrateDB node: /_sql for
// registered statements and blob tables, /_blobs for blob storage. All state
// is kept in memory.
type Node struct {
	config     common.ServerConfig
	transport  transport.IRPCServerTransport
	serializer serializer.IRPCSerializer

	handlers *xsync.MapOf[string, StatementHandler]
	tables   *xsync.MapOf[string, *blobTable]

	unavailable atomic.Bool
	requests    atomic.Int64
}

// HandleStatement registers a handler for a statement. Statements are matched
// case insensitively with normalized whitespace and without trailing semicolon.
func (n *Node) HandleStatement(stmt string, handler StatementHandler) {
	n.handlers.Store(normalizeStatement(stmt), handler)
}

// SetUnavailable makes the node answer every request with 503
func (n *Node) SetUnavailable(unavailable bool) {
	n.unavailable.Store(unavailable)
}

// Requests returns the number of requests received so far
func (n *Node) Requests() int64 {
	return n.requests.Load()
}

// Blob returns a stored blob
func (n *Node) Blob(table, d string) ([]byte, bool) {
	t, ok := n.tables.Load(strings.ToLower(table))
	if !ok {
		return nil, false
	}
	return t.blobs.Load(d)
}

// Handler returns the http.Handler serving the node's routes
func (n *Node) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST "+common.SQLPath, n.handleSQL)
	mux.HandleFunc(common.BlobsPath+"/{container}/{digest}", n.handleBlob)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n.requests.Add(1)
		if n.unavailable.Load() {
			writeError(w, http.StatusServiceUnavailable, CodeUnavailable, "node is unavailable")
			return
		}
		mux.ServeHTTP(w, r)
	})
}

// Serve starts the node
// This function initializes the loggers and blocks in the transport layer
func (n *Node) Serve() error {
	if err := common.InitLoggers(n.config.LogLevel); err != nil {
		return err
	}
	Logger.Infof(n.config.String())

	n.transport.RegisterHandler(n.Handler())
	return n.transport.Listen(n.config)
}

// --------------------------------------------------------------------------
// SQL
// --------------------------------------------------------------------------

func (n *Node) handleSQL(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	body, err := io.ReadAll(io.LimitReader(r.Body, maxStatementBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeParseError, "failed to read request body")
		return
	}

	var req common.SQLRequest
	if err := n.serializer.DeserializeRequest(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, CodeParseError, fmt.Sprintf("SQLParseException[%v]", err))
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, CodeParseError, fmt.Sprintf("SQLParseException[%v]", err))
		return
	}

	var resp *common.SQLResponse
	if req.IsBulk() {
		resp, err = n.executeBulk(&req)
	} else {
		resp, err = n.execute(req.Stmt, req.Args)
	}
	if err != nil {
		var se *common.StatusError
		if errors.As(err, &se) {
			writeError(w, se.StatusCode, se.Code, se.Message)
			return
		}
		writeError(w, http.StatusBadRequest, CodeParseError, err.Error())
		return
	}

	resp.Duration = float64(time.Since(start).Microseconds()) / 1000
	data, err := n.serializer.SerializeResponse(resp)
	if err != nil {
		writeError(w, http.StatusInternalServerError, 5000, err.Error())
		return
	}

	w.Header().Set("Content-Type", n.serializer.ContentType())
	if _, err := w.Write(data); err != nil {
		Logger.Warningf("failed to write response: %v", err)
	}
}

func (n *Node) execute(stmt string, args []any) (*common.SQLResponse, error) {
	handler, err := n.resolve(stmt)
	if err != nil {
		return nil, err
	}
	return runHandler(handler, stmt, args)
}

// resolve returns the handler answering stmt. Unknown statements fail with
// a parse error.
func (n *Node) resolve(stmt string) (StatementHandler, error) {
	if m := createBlobTableRe.FindStringSubmatch(stmt); m != nil {
		return func(string, []any) (*common.SQLResponse, error) {
			return n.createBlobTable(strings.ToLower(m[1]))
		}, nil
	}
	if m := dropBlobTableRe.FindStringSubmatch(stmt); m != nil {
		return func(string, []any) (*common.SQLResponse, error) {
			return n.dropBlobTable(strings.ToLower(m[2]), m[1] != "")
		}, nil
	}

	handler, ok := n.handlers.Load(normalizeStatement(stmt))
	if !ok {
		return nil, &common.StatusError{
			StatusCode: http.StatusBadRequest,
			Code:       CodeParseError,
			Message:    fmt.Sprintf("SQLParseException[unsupported statement: %s]", stmt),
		}
	}
	return handler, nil
}

func runHandler(handler StatementHandler, stmt string, args []any) (*common.SQLResponse, error) {
	resp, err := handler(stmt, args)
	if err != nil {
		return nil, err
	}
	if resp == nil {
		resp = RowCountOf(common.UnknownRowCount)
	}
	return resp, nil
}

// executeBulk runs the statement once per parameter set. An unknown
// statement fails the whole request, failed sets are reported with row
// count -2.
func (n *Node) executeBulk(req *common.SQLRequest) (*common.SQLResponse, error) {
	handler, err := n.resolve(req.Stmt)
	if err != nil {
		return nil, err
	}

	results := make([]common.BulkResponse, len(req.BulkArgs))
	for i, args := range req.BulkArgs {
		resp, err := runHandler(handler, req.Stmt, args)
		switch {
		case err != nil:
			Logger.Debugf("bulk set %d failed: %v", i, err)
			results[i].RowCount = common.BulkFailed
		case resp.RowCount != nil:
			results[i].RowCount = *resp.RowCount
		default:
			results[i].RowCount = common.UnknownRowCount
		}
	}
	return &common.SQLResponse{Cols: []string{}, Results: results}, nil
}

func (n *Node) createBlobTable(name string) (*common.SQLResponse, error) {
	if _, loaded := n.tables.LoadOrStore(name, &blobTable{blobs: xsync.NewMapOf[string, []byte]()}); loaded {
		return nil, &common.StatusError{
			StatusCode: http.StatusConflict,
			Code:       CodeRelationExists,
			Message:    fmt.Sprintf("RelationAlreadyExists[Relation 'blob.%s' already exists.]", name),
		}
	}
	Logger.Infof("created blob table %s", name)
	return RowCountOf(1), nil
}

func (n *Node) dropBlobTable(name string, ifExists bool) (*common.SQLResponse, error) {
	if _, loaded := n.tables.LoadAndDelete(name); !loaded && !ifExists {
		return nil, &common.StatusError{
			StatusCode: http.StatusNotFound,
			Code:       CodeUnknownRelation,
			Message:    fmt.Sprintf("RelationUnknown[Relation 'blob.%s' unknown]", name),
		}
	}
	Logger.Infof("dropped blob table %s", name)
	return RowCountOf(1), nil
}

// --------------------------------------------------------------------------
// Blobs
// --------------------------------------------------------------------------

func (n *Node) handleBlob(w http.ResponseWriter, r *http.Request) {
	if n.config.BlobsDisabled {
		writeError(w, http.StatusBadRequest, CodeBlobsDisabled, "BlobsDisabledException[blobs are disabled on this node]")
		return
	}

	name, d := r.PathValue("container"), r.PathValue("digest")
	if !digest.Valid(d) {
		writeError(w, http.StatusBadRequest, CodeParseError, fmt.Sprintf("invalid digest %q", d))
		return
	}

	table, ok := n.tables.Load(strings.ToLower(name))
	if !ok {
		writeError(w, http.StatusNotFound, CodeUnknownRelation, fmt.Sprintf("BlobsTableUnknown[blob table '%s' unknown]", name))
		return
	}

	switch r.Method {
	case http.MethodHead:
		if _, ok := table.blobs.Load(d); !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)

	case http.MethodGet:
		content, ok := table.blobs.Load(d)
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Header().Set("Content-Length", fmt.Sprint(len(content)))
		if _, err := w.Write(content); err != nil {
			Logger.Warningf("failed to write blob %s/%s: %v", name, d, err)
		}

	case http.MethodPut:
		n.putBlob(w, r, table, name, d)

	case http.MethodDelete:
		if _, ok := table.blobs.LoadAndDelete(d); !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		w.Header().Set("Allow", "HEAD, GET, PUT, DELETE")
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (n *Node) putBlob(w http.ResponseWriter, r *http.Request, table *blobTable, name, d string) {
	content, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeParseError, "failed to read blob content")
		return
	}

	if digest.Of(content) != d {
		writeError(w, http.StatusConflict, CodeDigestMismatch, "DigestMismatchException[digest of content does not match "+d+"]")
		return
	}

	if _, loaded := table.blobs.LoadOrStore(d, content); loaded {
		w.WriteHeader(http.StatusConflict)
		return
	}
	Logger.Debugf("stored blob %s/%s (%d bytes)", name, d, len(content))
	w.WriteHeader(http.StatusCreated)
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

func writeError(w http.ResponseWriter, status, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(common.NewErrorResponse(code, message)); err != nil {
		Logger.Debugf("failed to write error response: %v", err)
	}
}

func normalizeStatement(stmt string) string {
	stmt = strings.TrimSpace(stmt)
	stmt = strings.TrimRight(stmt, "; ")
	return strings.ToLower(strings.Join(strings.Fields(stmt), " "))
}

func mustMarshal(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}
