package echo

import (
	"github.com/google/uuid"
	"github.com/johnsiilver/sockcred/ipc/uds"
	"github.com/johnsiilver/sockcred/ipc/uds/reaper"

	log "github.com/golang/glog"
)

// Serve accepts connections on serv and runs a Worker for each under r. It returns only when
// Accept fails, which means the listener is gone. options are passed to every Worker.
// r.Run() must be running for terminated workers to be reclaimed.
func Serve(serv *uds.Server, r *reaper.Reaper, options ...Option) error {
	for {
		conn, err := serv.Accept()
		if err != nil {
			log.Errorf("accept error: %s", err)
			return err
		}

		id := uuid.New().String()
		log.Infof("conn %s: accepted, peer %s", id, conn.Cred)

		// From here on the worker owns conn.
		r.Spawn(id, NewWorker(id, conn, options...).Run)
	}
}
