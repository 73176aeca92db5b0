package devtools

import "testing"

func TestDefaultAddress(t *testing.T) {
	c := New("")
	if c.URL() != "http://"+DefaultAddress+"/debug/statsview" {
		t.Errorf("Expected default URL, got %s", c.URL())
	}
}

func TestStopWithoutLaunch(t *testing.T) {
	c := New("localhost:0")
	c.Stop()
	c.Stop()
}
