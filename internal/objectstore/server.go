package objectstore

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/nmanojkumar030/sparklite-core/internal/netsim"
)

// Server answers RPCs for one node: stateless except for a local byte
// store rooted at its own directory. Each server owns a disjoint
// directory on disk.
type Server struct {
	endpoint netsim.Endpoint
	bus      *netsim.Bus
	dir      string
}

// NewServer creates dir if absent and registers the server's RPC handler
// on bus at endpoint.
func NewServer(bus *netsim.Bus, endpoint netsim.Endpoint, dir string) (*Server, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("objectstore: create server directory: %w", err)
	}
	s := &Server{endpoint: endpoint, bus: bus, dir: dir}
	bus.RegisterHandler(endpoint, s.handle)
	return s, nil
}

// Endpoint returns the server's network address.
func (s *Server) Endpoint() netsim.Endpoint { return s.endpoint }

func (s *Server) handle(env netsim.Envelope) {
	req, ok := env.Payload.(*Request)
	if !ok {
		return
	}
	resp := s.process(req)
	s.bus.Send(resp, s.endpoint, env.Source)
}

func (s *Server) process(req *Request) *Response {
	resp := &Response{RequestID: req.RequestID, Op: req.Op}

	path, err := s.keyPath(req.Key)
	if err != nil {
		resp.Status = StatusError
		resp.Err = err.Error()
		return resp
	}

	switch req.Op {
	case OpPut:
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			resp.Status, resp.Err = StatusError, err.Error()
			return resp
		}
		if err := os.WriteFile(path, req.Payload, 0o644); err != nil {
			resp.Status, resp.Err = StatusError, err.Error()
			return resp
		}
		resp.Status = StatusOK

	case OpGet:
		data, err := os.ReadFile(path)
		if os.IsNotExist(err) {
			resp.Status = StatusNotFound
			return resp
		}
		if err != nil {
			resp.Status, resp.Err = StatusError, err.Error()
			return resp
		}
		resp.Status = StatusOK
		resp.Payload = data

	case OpDelete:
		if err := os.Remove(path); os.IsNotExist(err) {
			resp.Status = StatusNotFound
			return resp
		} else if err != nil {
			resp.Status, resp.Err = StatusError, err.Error()
			return resp
		}
		resp.Status = StatusOK

	case OpSize:
		info, err := os.Stat(path)
		if os.IsNotExist(err) {
			resp.Status = StatusNotFound
			return resp
		}
		if err != nil {
			resp.Status, resp.Err = StatusError, err.Error()
			return resp
		}
		resp.Status = StatusOK
		resp.Size = uint64(info.Size())

	case OpRange:
		data, err := os.ReadFile(path)
		if os.IsNotExist(err) {
			resp.Status = StatusNotFound
			return resp
		}
		if err != nil {
			resp.Status, resp.Err = StatusError, err.Error()
			return resp
		}
		start, end := req.RangeStart, req.RangeEnd
		if start < 0 || end < start || int(end) >= len(data) {
			resp.Status = StatusError
			resp.Err = "range out of bounds"
			return resp
		}
		resp.Status = StatusOK
		resp.Payload = data[start : end+1]

	case OpList:
		keys, err := s.listKeys(req.Prefix)
		if err != nil {
			resp.Status, resp.Err = StatusError, err.Error()
			return resp
		}
		resp.Status = StatusOK
		resp.Keys = keys

	default:
		resp.Status = StatusError
		resp.Err = fmt.Sprintf("unknown op %q", req.Op)
	}
	return resp
}

// keyPath resolves key to a file under s.dir. Only an empty key is
// rejected; every other key is confined to s.dir. Cleaning "/"+key before
// joining — rather than
// cleaning key directly — means a leading ".." in key can never walk
// above s.dir.
func (s *Server) keyPath(key string) (string, error) {
	if key == "" {
		return "", fmt.Errorf("objectstore: empty key")
	}
	clean := filepath.Clean("/" + key)
	return filepath.Join(s.dir, clean), nil
}

func (s *Server) listKeys(prefix string) ([]string, error) {
	var keys []string
	root := s.dir
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(keys)
	return keys, nil
}
