package hnap

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"sort"
	"strings"
)

// ActionBaseURL is the SOAP action namespace shared by all D-Link HNAP
// firmwares.
const ActionBaseURL = "http://purenetworks.com/HNAP1/"

// Values holds the leaf elements of a SOAP response body. Repeated elements
// (e.g. the SOAPActions string list) keep every occurrence.
type Values map[string][]string

func (v Values) Get(key string) string {
	if vs, ok := v[key]; ok && len(vs) > 0 {
		return vs[0]
	}
	return ""
}

func (v Values) All(key string) []string {
	return v[key]
}

func (v Values) Has(key string) bool {
	_, ok := v[key]
	return ok
}

func (v Values) add(key, value string) {
	v[key] = append(v[key], value)
}

// hasErrorResult reports whether any leaf is the literal "ERROR" payload the
// device uses to reject a stale session token.
func (v Values) hasErrorResult() bool {
	for _, vs := range v {
		for _, s := range vs {
			if s == "ERROR" {
				return true
			}
		}
	}
	return false
}

func buildEnvelope(action string, params map[string]string) []byte {
	var buf bytes.Buffer
	buf.WriteString(`<?xml version="1.0" encoding="utf-8"?>`)
	buf.WriteString(`<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/"` +
		` xmlns:xsd="http://www.w3.org/2001/XMLSchema"` +
		` xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance">`)
	buf.WriteString("<soap:Body>")
	fmt.Fprintf(&buf, `<%s xmlns="%s">`, action, ActionBaseURL)

	// deterministic param order
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&buf, "<%s>", k)
		xml.EscapeText(&buf, []byte(params[k]))
		fmt.Fprintf(&buf, "</%s>", k)
	}

	fmt.Fprintf(&buf, "</%s>", action)
	buf.WriteString("</soap:Body>")
	buf.WriteString("</soap:Envelope>")
	return buf.Bytes()
}

// parseEnvelope extracts the leaf values of the <{action}Response> element.
// Nested containers (MotionDetectorLogList etc.) are flattened: only elements
// without child elements contribute a value.
func parseEnvelope(data []byte, action string) (Values, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	want := action + "Response"
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return nil, &ProtocolError{Reason: fmt.Sprintf("no %s element found", want)}
		}
		if err != nil {
			return nil, &ProtocolError{Reason: "malformed response envelope", Err: err}
		}
		if se, ok := tok.(xml.StartElement); ok && se.Name.Local == want {
			return collectLeaves(dec)
		}
	}
}

type leafFrame struct {
	name     string
	text     strings.Builder
	hasChild bool
}

func collectLeaves(dec *xml.Decoder) (Values, error) {
	values := Values{}
	var stack []*leafFrame
	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, &ProtocolError{Reason: "truncated response body", Err: err}
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if len(stack) > 0 {
				stack[len(stack)-1].hasChild = true
			}
			stack = append(stack, &leafFrame{name: t.Name.Local})
		case xml.CharData:
			if len(stack) > 0 {
				stack[len(stack)-1].text.Write(t)
			}
		case xml.EndElement:
			if len(stack) == 0 {
				// closing the Response element itself
				return values, nil
			}
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if !top.hasChild {
				values.add(top.name, strings.TrimSpace(top.text.String()))
			}
		}
	}
}
