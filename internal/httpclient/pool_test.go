package httpclient

import "testing"

func TestPoolGetReusesClient(t *testing.T) {
	p := NewPool(PoolOptions{})
	a := p.Get("10.0.0.1:443")
	b := p.Get("10.0.0.1:443")
	if a != b {
		t.Fatalf("expected the same *http.Client to be reused for the same target")
	}
}

func TestPoolDiscardForcesNewClient(t *testing.T) {
	p := NewPool(PoolOptions{})
	a := p.Get("10.0.0.1:443")
	p.Discard("10.0.0.1:443")
	b := p.Get("10.0.0.1:443")
	if a == b {
		t.Fatalf("expected a fresh client after Discard")
	}
}

func TestPoolDifferentTargetsDifferentClients(t *testing.T) {
	p := NewPool(PoolOptions{})
	a := p.Get("10.0.0.1:443")
	b := p.Get("10.0.0.2:443")
	if a == b {
		t.Fatalf("expected distinct clients for distinct targets")
	}
}

func TestTargetKey(t *testing.T) {
	if got := TargetKey("10.0.0.1", 443); got != "10.0.0.1:443" {
		t.Fatalf("got %q", got)
	}
}
