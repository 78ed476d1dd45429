package node

import "testing"

func TestIdPrefixAndString(t *testing.T) {
	id := Id{Package: "acme", Name: "widget", Version: "1.2.3", Arch: "amd64", Digest: "deadbeef"}
	if id.Prefix() != "acme+widget-1.2.3.amd64" {
		t.Fatalf("prefix = %q", id.Prefix())
	}
	if id.String() != "acme+widget-1.2.3.amd64-deadbeef" {
		t.Fatalf("string = %q", id.String())
	}
}

func TestNameNormalization(t *testing.T) {
	got := Name("https://example.com/foo@1.0:bar")
	if got != "example_com_foo_1_0_bar" {
		t.Fatalf("got %q", got)
	}
}

func TestMediaTypeRoundTrip(t *testing.T) {
	mt := MediaType{Kind: KindTar, Compression: CompressionGzip}
	s := mt.String()
	if s != "vnd.edo.artifact.v1.tar.gz" {
		t.Fatalf("string = %q", s)
	}
	got, err := ParseMediaType(s)
	if err != nil {
		t.Fatal(err)
	}
	if got.Kind != KindTar || got.Compression != CompressionGzip {
		t.Fatalf("round trip mismatch: %+v", got)
	}
}

func TestNodeSetDataIsVisibleToAllHolders(t *testing.T) {
	n := NewString("before")
	holder := n
	n.SetData(Data{Kind: KindString, String: "after"})
	got, _ := holder.AsString()
	if got != "after" {
		t.Fatalf("got %q", got)
	}
}

func TestNodeValidateKeys(t *testing.T) {
	n := NewDefinition(ComponentTransform, "script", "build", map[string]*Node{
		"environment": NewString("//env/local"),
	})
	missing := n.ValidateKeys("environment", "depends")
	if len(missing) != 1 || missing[0] != "depends" {
		t.Fatalf("missing = %v", missing)
	}
}
