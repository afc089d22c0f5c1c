package cli

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
	"sigs.k8s.io/yaml"
)

// LoadDatasetFile reads a dataset definition from a YAML or JSON file and
// returns it as a JSON document. Only the name, description, tags and
// parent_id keys are kept.
func LoadDatasetFile(filename string) ([]byte, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %v", err)
	}
	jsonData, err := yaml.YAMLToJSON(data)
	if err != nil {
		return nil, fmt.Errorf("failed to convert YAML to JSON: %v", err)
	}
	parsed := gjson.ParseBytes(jsonData)
	if !parsed.IsObject() {
		return nil, fmt.Errorf("%s: expected a mapping", filename)
	}
	doc := []byte(`{}`)
	for _, key := range []string{"name", "description", "tags", "parent_id"} {
		if v := parsed.Get(key); v.Exists() {
			doc, err = sjson.SetRawBytes(doc, key, []byte(v.Raw))
			if err != nil {
				return nil, err
			}
		}
	}
	return doc, nil
}

// datasetBody builds a create or update request from flag values. Empty
// values are left out.
func datasetBody(fields map[string]string, tags []string) ([]byte, error) {
	doc := []byte(`{}`)
	var err error
	for k, v := range fields {
		if v == "" {
			continue
		}
		if doc, err = sjson.SetBytes(doc, k, v); err != nil {
			return nil, err
		}
	}
	if tags != nil {
		if doc, err = sjson.SetBytes(doc, "tags", tags); err != nil {
			return nil, err
		}
	}
	return doc, nil
}

// splitTags parses a comma separated tag list. nil means the flag was not given.
func splitTags(s string, set bool) []string {
	if !set {
		return nil
	}
	tags := []string{}
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

// multipartFile returns a body producer that streams a file upload with the
// given form fields. Every call reopens the file so the upload can be retried.
func multipartFile(filename string, fields map[string]string) func() (io.Reader, string, error) {
	return func() (io.Reader, string, error) {
		f, err := os.Open(filename)
		if err != nil {
			return nil, "", fmt.Errorf("failed to open file: %v", err)
		}
		pr, pw := io.Pipe()
		mw := multipart.NewWriter(pw)
		go func() {
			defer f.Close()
			for k, v := range fields {
				if v == "" {
					continue
				}
				if err := mw.WriteField(k, v); err != nil {
					pw.CloseWithError(err)
					return
				}
			}
			part, err := mw.CreateFormFile("file", filepath.Base(filename))
			if err != nil {
				pw.CloseWithError(err)
				return
			}
			if _, err := io.Copy(part, f); err != nil {
				pw.CloseWithError(err)
				return
			}
			pw.CloseWithError(mw.Close())
		}()
		return pr, mw.FormDataContentType(), nil
	}
}
