package api

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServer_ShutdownRacingStart(t *testing.T) {
	for i := 0; i < 3; i++ {
		srv := NewServer("127.0.0.1:0", []string{"*"}, NewHandler(&fakeSearch{}, nil, nil), nil)

		errc := make(chan error, 1)
		go func() { errc <- srv.Start() }()

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		require.NoError(t, srv.Shutdown(ctx))
		cancel()

		select {
		case err := <-errc:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Fatal("Start still serving after Shutdown returned")
		}
	}
}

func TestServer_ShutdownBeforeStart(t *testing.T) {
	srv := NewServer("127.0.0.1:0", []string{"*"}, NewHandler(&fakeSearch{}, nil, nil), nil)
	require.NoError(t, srv.Shutdown(context.Background()))
	assert.NoError(t, srv.Start())
}
