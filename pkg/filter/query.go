package filter

import (
	"github.com/valyala/fasthttp"
)

// FromArgs collects query arguments in the order they appear in the URL.
func FromArgs(args *fasthttp.Args) Params {
	p := NewParams()
	args.VisitAll(func(key, value []byte) {
		p.Add(string(key), string(value))
	})
	return p
}

// ParseQuery parses a raw query string such as `humidity[gt]=10&page=2`.
func ParseQuery(raw string) Params {
	var args fasthttp.Args
	args.Parse(raw)
	return FromArgs(&args)
}
