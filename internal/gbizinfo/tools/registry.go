// Package tools exposes the service layer as a table of named tools with
// published JSON Schemas. Every transport (MCP, gRPC, REST) dispatches
// through the same Registry.
package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	e "github.com/gartstein/gbizinfo/internal/gbizinfo/errors"
	"github.com/gartstein/gbizinfo/internal/gbizinfo/models"
	"github.com/invopop/jsonschema"
	sjs "github.com/santhosh-tekuri/jsonschema/v6"
	"go.uber.org/zap"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Service is the slice of the service layer the tools dispatch to.
type Service interface {
	Search(ctx context.Context, q models.SearchQuery) (*models.PaginatedResult[models.Company], error)
	GetDetail(ctx context.Context, category models.Category, corporateNumber string) (*models.DetailResult, error)
	GetUpdateInfo(ctx context.Context, category models.Category, from, to string, page int) (*models.UpdateInfoPage, error)
}

type handlerFunc func(ctx context.Context, args json.RawMessage) (any, error)

// Tool is one named operation with its argument schema.
type Tool struct {
	Name        string
	Description string
	Schema      json.RawMessage

	required  []string
	types     map[string]string
	validator *sjs.Schema
	handler   handlerFunc
}

// ParamType returns the JSON Schema type of the named argument, or "" when
// the tool has no such argument.
func (t *Tool) ParamType(name string) string {
	return t.types[name]
}

// Registry holds every tool in registration order.
type Registry struct {
	tools  []*Tool
	byName map[string]*Tool
	logger *zap.Logger
}

var printer = message.NewPrinter(language.English)

var categoryText = map[models.Category]string{
	models.CategoryBasic:         "basic information",
	models.CategoryCertification: "certification and notification information",
	models.CategoryCommendation:  "commendation information",
	models.CategoryFinance:       "financial information",
	models.CategoryPatent:        "patent information",
	models.CategoryProcurement:   "procurement information",
	models.CategorySubsidy:       "subsidy information",
	models.CategoryWorkplace:     "workplace information",
}

// NewRegistry builds the full tool table over svc.
func NewRegistry(svc Service, logger *zap.Logger) (*Registry, error) {
	r := &Registry{byName: make(map[string]*Tool), logger: logger.Named("tools")}

	err := r.register("search",
		"Search gBizINFO companies by any combination of filters (name, location, industry, financial ranges, certifications...).",
		&models.SearchQuery{},
		func(ctx context.Context, raw json.RawMessage) (any, error) {
			var q models.SearchQuery
			if err := decode(raw, &q); err != nil {
				return nil, err
			}
			return svc.Search(ctx, q)
		})
	if err != nil {
		return nil, err
	}

	for _, cat := range models.Categories {
		cat := cat
		err := r.register("get_"+cat.Label()+suffix(cat),
			fmt.Sprintf("Get a company's %s by corporate number.", categoryText[cat]),
			&CorporateNumberArgs{},
			func(ctx context.Context, raw json.RawMessage) (any, error) {
				var args CorporateNumberArgs
				if err := decode(raw, &args); err != nil {
					return nil, err
				}
				return svc.GetDetail(ctx, cat, args.CorporateNumber)
			})
		if err != nil {
			return nil, err
		}
	}

	for _, cat := range models.Categories {
		cat := cat
		name := "get_update_info"
		desc := "List companies whose records were updated in a date range."
		if cat != models.CategoryBasic {
			name += "_" + string(cat)
			desc = fmt.Sprintf("List companies whose %s was updated in a date range.", categoryText[cat])
		}
		err := r.register(name, desc, &UpdateInfoArgs{},
			func(ctx context.Context, raw json.RawMessage) (any, error) {
				var args UpdateInfoArgs
				if err := decode(raw, &args); err != nil {
					return nil, err
				}
				page := models.DefaultPage
				if args.Page != nil {
					if *args.Page < models.MinPage {
						return nil, e.NewValidationError(e.ErrRange, "page", "page must be >= 1")
					}
					page = *args.Page
				}
				return svc.GetUpdateInfo(ctx, cat, args.From, args.To, page)
			})
		if err != nil {
			return nil, err
		}
	}

	return r, nil
}

// suffix keeps the basic getter named get_basic_info.
func suffix(c models.Category) string {
	if c == models.CategoryBasic {
		return "_info"
	}
	return ""
}

func (r *Registry) register(name, description string, args any, h handlerFunc) error {
	reflector := &jsonschema.Reflector{Anonymous: true, ExpandedStruct: true, DoNotReference: true}
	schema := reflector.Reflect(args)
	schema.Version = ""
	schema.Description = description

	types := make(map[string]string)
	if schema.Properties != nil {
		for pair := schema.Properties.Oldest(); pair != nil; pair = pair.Next() {
			types[pair.Key] = pair.Value.Type
		}
	}

	raw, err := json.Marshal(schema)
	if err != nil {
		return fmt.Errorf("marshal schema for %s: %w", name, err)
	}

	doc, err := sjs.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("parse schema for %s: %w", name, err)
	}
	loc := "mem:///tools/" + name + ".json"
	c := sjs.NewCompiler()
	if err := c.AddResource(loc, doc); err != nil {
		return fmt.Errorf("add schema for %s: %w", name, err)
	}
	validator, err := c.Compile(loc)
	if err != nil {
		return fmt.Errorf("compile schema for %s: %w", name, err)
	}

	t := &Tool{
		Name:        name,
		Description: description,
		Schema:      raw,
		required:    schema.Required,
		types:       types,
		validator:   validator,
		handler:     h,
	}
	r.tools = append(r.tools, t)
	r.byName[name] = t
	return nil
}

// List returns the tools in registration order.
func (r *Registry) List() []*Tool {
	out := make([]*Tool, len(r.tools))
	copy(out, r.tools)
	return out
}

// Lookup finds a tool by name.
func (r *Registry) Lookup(name string) (*Tool, bool) {
	t, ok := r.byName[name]
	return t, ok
}

// Call validates args against the tool's schema and runs it. Empty args are
// treated as an empty object.
func (r *Registry) Call(ctx context.Context, name string, args json.RawMessage) (any, error) {
	t, ok := r.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", e.ErrUnknownTool, name)
	}

	args = bytes.TrimSpace(args)
	if len(args) == 0 || bytes.Equal(args, []byte("null")) {
		args = json.RawMessage("{}")
	}

	if err := t.check(args); err != nil {
		r.logger.Debug("rejected tool arguments", zap.String("tool", name), zap.Error(err))
		return nil, err
	}

	res, err := t.handler(ctx, args)
	if err != nil {
		if !errors.Is(err, e.ErrInvalidInput) {
			r.logger.Warn("tool call failed", zap.String("tool", name), zap.Error(err))
		}
		return nil, err
	}
	return res, nil
}

// check reports missing required arguments first, then any schema mismatch.
func (t *Tool) check(args json.RawMessage) error {
	inst, err := sjs.UnmarshalJSON(bytes.NewReader(args))
	if err != nil {
		return e.NewValidationError(e.ErrInvalidInput, "", "arguments must be valid JSON")
	}
	obj, ok := inst.(map[string]any)
	if !ok {
		return e.NewValidationError(e.ErrInvalidInput, "", "arguments must be a JSON object")
	}
	for _, field := range t.required {
		if v, present := obj[field]; !present || v == nil {
			return e.Required(field)
		}
	}

	if err := t.validator.Validate(inst); err != nil {
		var verr *sjs.ValidationError
		if errors.As(err, &verr) {
			leaf := firstLeaf(verr)
			return e.NewValidationError(e.ErrInvalidInput, strings.Join(leaf.InstanceLocation, "."), leaf.ErrorKind.LocalizedString(printer))
		}
		return e.NewValidationError(e.ErrInvalidInput, "", err.Error())
	}
	return nil
}

func firstLeaf(v *sjs.ValidationError) *sjs.ValidationError {
	for len(v.Causes) > 0 {
		v = v.Causes[0]
	}
	return v
}

func decode(raw json.RawMessage, dst any) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return e.NewValidationError(e.ErrInvalidInput, "", fmt.Sprintf("invalid arguments: %v", err))
	}
	return nil
}

// ArgsFromQuery converts URL query parameters into a tool argument object,
// coercing each value to the type the tool's schema declares. Unknown
// parameters are kept as strings so the schema check rejects them.
func (t *Tool) ArgsFromQuery(q url.Values) (json.RawMessage, error) {
	args := make(map[string]any, len(q))
	for key, values := range q {
		if len(values) == 0 {
			continue
		}
		v := values[len(values)-1]
		switch t.types[key] {
		case "integer":
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return nil, e.NewValidationError(e.ErrInvalidInput, key, "must be an integer")
			}
			args[key] = n
		case "boolean":
			b, err := strconv.ParseBool(v)
			if err != nil {
				return nil, e.NewValidationError(e.ErrInvalidInput, key, "must be a boolean")
			}
			args[key] = b
		default:
			args[key] = v
		}
	}
	return json.Marshal(args)
}
