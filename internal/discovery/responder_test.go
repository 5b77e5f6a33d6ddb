package discovery

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onebiot/onebiot/internal/faults"
)

type fakeServer struct {
	text     [][]string
	shutdown int
}

func (f *fakeServer) SetText(text []string) { f.text = append(f.text, text) }
func (f *fakeServer) Shutdown() { f.shutdown++ }

type registration struct {
	instance string
	port     int
	host     string
	ips      []string
	text     []string
}

func fakeResponder(fail error) (*Responder, *[]registration, *fakeServer) {
	var regs []registration
	srv := &fakeServer{}
	r := &Responder{
		register: func(instance string, port int, host string, ips, text []string) (server, error) {
			if fail != nil {
				return nil, fail
			}
			regs = append(regs, registration{instance, port, host, ips, text})
			return srv, nil
		},
	}
	return r, &regs, srv
}

func TestResponder_Start(t *testing.T) {
	r, regs, _ := fakeResponder(nil)
	r.Addrs = func() []string { return []string{"192.168.4.1"} }

	require.NoError(t, r.Start("kitchen", 80))
	assert.True(t, r.Active())
	assert.Equal(t, "kitchen", r.Name())

	require.Len(t, *regs, 1)
	reg := (*regs)[0]
	assert.Equal(t, "kitchen", reg.instance)
	assert.Equal(t, "kitchen", reg.host)
	assert.Equal(t, 80, reg.port)
	assert.Contains(t, reg.text, "device=onebiot")
}

func TestResponder_StartWithoutAddrsUsesHostname(t *testing.T) {
	r, regs, _ := fakeResponder(nil)
	require.NoError(t, r.Start("onebiot", 8080))
	assert.Empty(t, (*regs)[0].host)
}

func TestResponder_StartFailure(t *testing.T) {
	r, _, _ := fakeResponder(errors.New("no multicast"))
	err := r.Start("onebiot", 80)
	assert.True(t, faults.IsDiscoveryError(err))
	assert.False(t, r.Active())
}

func TestResponder_PollRepublishesChangedText(t *testing.T) {
	mode := "wifi"
	r, _, srv := fakeResponder(nil)
	r.Text = func() []string { return []string{"mode=" + mode} }

	r.Poll() // not started: nothing to do
	require.NoError(t, r.Start("onebiot", 80))

	r.Poll()
	assert.Empty(t, srv.text)

	mode = "ap"
	r.Poll()
	require.Len(t, srv.text, 1)
	assert.Contains(t, srv.text[0], "mode=ap")
}

func TestResponder_RestartAndStop(t *testing.T) {
	r, regs, srv := fakeResponder(nil)
	require.NoError(t, r.Start("one", 80))
	require.NoError(t, r.Start("two", 80))
	assert.Len(t, *regs, 2)
	assert.Equal(t, 1, srv.shutdown)

	r.Stop()
	assert.False(t, r.Active())
	assert.Equal(t, 2, srv.shutdown)
}
