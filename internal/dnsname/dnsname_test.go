package dnsname

import "testing"

func TestValid(t *testing.T) {
	cases := map[string]bool{
		"blog":     true,
		"my-app2":  true,
		"":         false,
		"has.dot":  false,
		"has space": false,
		"has_under": false,
	}
	for in, want := range cases {
		if got := Valid(in); got != want {
			t.Errorf("Valid(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNormalize(t *testing.T) {
	if Normalize("Blog") != "blog" {
		t.Fatal("expected lowercase")
	}
}

func TestStripPort(t *testing.T) {
	if StripPort("blog.test:8080") != "blog.test" {
		t.Fatal("expected port stripped")
	}
	if StripPort("blog.test") != "blog.test" {
		t.Fatal("expected no-op without port")
	}
}

func TestTrimTestSuffix(t *testing.T) {
	name, ok := TrimTestSuffix("blog.test")
	if !ok || name != "blog" {
		t.Fatalf("expected (blog, true), got (%q, %v)", name, ok)
	}
	name, ok = TrimTestSuffix("Blog.TEST")
	if !ok || name != "Blog" {
		t.Fatalf("expected case-insensitive suffix match, got (%q, %v)", name, ok)
	}
	if _, ok := TrimTestSuffix("blog.com"); ok {
		t.Fatal("expected non-.test host to fail")
	}
}
