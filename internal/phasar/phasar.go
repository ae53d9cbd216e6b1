// Package phasar converts the call graph printed by PhASAR into an
// interchange document.
package phasar

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/mcgtools/mcg/internal/mcg"
)

const callGraphField = "CallGraph"

// maxLine bounds a single JSON line of PhASAR output.
const maxLine = 64 << 20

// Read takes the last non-empty line of r as the PhASAR JSON object and
// converts it.
func Read(r io.Reader) (mcg.Document, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLine)
	var last []byte
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) > 0 {
			last = append(last[:0], line...)
		}
	}
	if err := scanner.Err(); err != nil {
		return mcg.Document{}, fmt.Errorf("read phasar output: %w", err)
	}
	if last == nil {
		return mcg.Document{}, &mcg.FormatError{Msg: "no phasar output"}
	}
	return Convert(last)
}

// Convert turns `{"CallGraph": {fn: [callee, ...] | null}}` into a version
// 1.0 document. Functions keep their order; callees that have no entry of
// their own get a body-less record after the declared ones.
func Convert(data []byte) (mcg.Document, error) {
	top, err := mcg.DecodeObject(data, "")
	if err != nil {
		return mcg.Document{}, err
	}
	raw, ok := top.Get(callGraphField)
	if !ok {
		return mcg.Document{}, &mcg.FormatError{Field: callGraphField, Msg: "missing call graph"}
	}
	doc := mcg.Document{Version: mcg.V1{}.Version(), Generator: mcg.Generator{Name: "phasar2cg", Version: mcg.DefaultGenerator.Version}}
	if mcg.IsNull(raw) {
		return doc, nil
	}
	functions, err := mcg.DecodeObject(raw, callGraphField)
	if err != nil {
		return mcg.Document{}, err
	}

	declared := make(map[string]int, len(functions))
	for _, fn := range functions {
		field := mcg.KeyPath(callGraphField, fn.Key)
		callees, err := mcg.DecodeArray(fn.Value, field)
		if err != nil {
			return mcg.Document{}, err
		}
		record := mcg.NewRecord(fn.Key)
		record.Callees = make([]string, 0, len(callees))
		for i, rawCallee := range callees {
			var callee string
			if err := json.Unmarshal(rawCallee, &callee); err != nil {
				return mcg.Document{}, &mcg.FormatError{Field: mcg.IndexPath(field, i), Msg: "expected a function name", Err: err}
			}
			record.Callees = append(record.Callees, callee)
		}
		if i, seen := declared[fn.Key]; seen {
			doc.Records[i] = record
			continue
		}
		declared[fn.Key] = len(doc.Records)
		doc.Records = append(doc.Records, record)
	}

	n := len(doc.Records)
	for i := 0; i < n; i++ {
		for _, callee := range doc.Records[i].Callees {
			if _, ok := declared[callee]; ok {
				continue
			}
			stub := mcg.NewRecord(callee)
			stub.HasBody = false
			declared[callee] = len(doc.Records)
			doc.Records = append(doc.Records, stub)
		}
	}
	return doc, nil
}

// Write encodes doc as indented version 1.0 JSON.
func Write(w io.Writer, doc mcg.Document) error {
	return mcg.DefaultRegistry().Encode(w, doc, mcg.EncodeOptions{Indent: "    "})
}
