package rpc

import (
	"context"
	"net/http"
	"strconv"

	"github.com/haldag/haldag/core"
	"github.com/haldag/haldag/utils"
)

var logger = utils.NewLogger("http")

const (
	// LocalHost "127.0.0.1"
	LocalHost = "127.0.0.1"
	// DefaultHTTPPort 23666
	DefaultHTTPPort = 23666

	version1Path  = "/v1"
	GetRangeParam = "range"
	GetHashParam  = "hash"
)

type Config struct {
	Port int
	C    *core.Core
}

// Server is a http server that serves joint and sync status queries;
// it only listens on 127.0.0.1
type Server struct {
	*http.Server
	c *core.Core
}

var globalSvr *Server

type HTTPHandlers = []struct {
	Path string
	F    func(http.ResponseWriter, *http.Request)
}

func NewServer(conf *Config) *Server {
	sMux := http.NewServeMux()
	// joint
	for _, handler := range jointHandlers {
		sMux.HandleFunc(handler.Path, handler.F)
	}
	// sync
	for _, handler := range syncHandlers {
		sMux.HandleFunc(handler.Path, handler.F)
	}

	//default handler
	sMux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	globalSvr = &Server{
		&http.Server{
			Addr:    LocalHost + ":" + strconv.Itoa(conf.Port),
			Handler: sMux,
		},
		conf.C,
	}

	return globalSvr
}

func (s *Server) Start() {
	go func() {
		if err := s.ListenAndServe(); err != http.ErrServerClosed {
			logger.Fatal("Http server listen failed:%v\n", err)
		}
	}()
}

func (s *Server) Stop() {
	if err := s.Shutdown(context.Background()); err != nil {
		logger.Warn("HTTP server shutdown err:%v\n", err)
	}
}
