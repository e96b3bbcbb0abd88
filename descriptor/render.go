package descriptor

import (
	"fmt"
	"strconv"
	"strings"

	"google.golang.org/protobuf/types/descriptorpb"
)

// RenderAll renders every file in sorted order, assigning RenderedSource
// on each. The order must be a valid topological sort (see Sort) so that
// a dependent file's imports are already-known names by the time it's
// rendered.
func RenderAll(sorted []*ProtoFile) error {
	for _, f := range sorted {
		src, err := Render(f)
		if err != nil {
			return &SourceGenerationFailedError{Path: f.Path, Err: err}
		}
		f.RenderedSource = src
	}
	return nil
}

// SourceGenerationFailedError wraps a failure rendering one file.
type SourceGenerationFailedError struct {
	Path string
	Err  error
}

func (e *SourceGenerationFailedError) Error() string {
	return fmt.Sprintf("descriptor: failed to render %s: %v", e.Path, e.Err)
}

func (e *SourceGenerationFailedError) Unwrap() error { return e.Err }

// Render walks f.Descriptor and emits .proto source text in the
// emit-order contract spec.md §4.7 fixes: syntax, imports, package, then
// top-level messages, enums, services, and extensions.
func Render(f *ProtoFile) (string, error) {
	fd := f.Descriptor
	var b strings.Builder

	syntax := fd.GetSyntax()
	if syntax == "" {
		syntax = "proto2"
	}
	fmt.Fprintf(&b, "syntax = %q;\n", syntax)

	for _, dep := range fd.GetDependency() {
		fmt.Fprintf(&b, "import %q;\n", dep)
	}

	if pkg := fd.GetPackage(); pkg != "" {
		b.WriteString("\n")
		fmt.Fprintf(&b, "package %s;\n", pkg)
	}

	for _, msg := range fd.GetMessageType() {
		b.WriteString("\n")
		renderMessage(&b, msg, 0)
	}
	for _, enum := range fd.GetEnumType() {
		b.WriteString("\n")
		renderEnum(&b, enum, 0)
	}
	for _, svc := range fd.GetService() {
		b.WriteString("\n")
		renderService(&b, svc, 0)
	}
	if len(fd.GetExtension()) > 0 {
		b.WriteString("\n")
		renderExtensions(&b, fd.GetExtension(), 0)
	}

	return b.String(), nil
}

func writeIndent(b *strings.Builder, depth int) {
	b.WriteString(strings.Repeat("  ", depth))
}

func stripLeadingDot(s string) string {
	return strings.TrimPrefix(s, ".")
}

func renderMessage(b *strings.Builder, msg *descriptorpb.DescriptorProto, depth int) {
	writeIndent(b, depth)
	fmt.Fprintf(b, "message %s {\n", msg.GetName())

	// Nested enums before nested messages before fields, so forward
	// references within the body stay valid (spec.md §4.7).
	for _, e := range msg.GetEnumType() {
		renderEnum(b, e, depth+1)
	}
	for _, nested := range msg.GetNestedType() {
		if nested.GetOptions().GetMapEntry() {
			continue // synthetic map-entry message, not a real nested type
		}
		renderMessage(b, nested, depth+1)
	}
	for _, field := range msg.GetField() {
		writeIndent(b, depth+1)
		b.WriteString(renderField(field))
		b.WriteString("\n")
	}
	for _, rr := range msg.GetReservedRange() {
		writeIndent(b, depth+1)
		fmt.Fprintf(b, "reserved %d to %d;\n", rr.GetStart(), rr.GetEnd()-1)
	}
	if len(msg.GetReservedName()) > 0 {
		writeIndent(b, depth+1)
		quoted := make([]string, len(msg.GetReservedName()))
		for i, n := range msg.GetReservedName() {
			quoted[i] = strconv.Quote(n)
		}
		fmt.Fprintf(b, "reserved %s;\n", strings.Join(quoted, ", "))
	}
	for _, er := range msg.GetExtensionRange() {
		writeIndent(b, depth+1)
		fmt.Fprintf(b, "extensions %d to %d;\n", er.GetStart(), er.GetEnd()-1)
	}
	if len(msg.GetExtension()) > 0 {
		renderExtensions(b, msg.GetExtension(), depth+1)
	}

	writeIndent(b, depth)
	b.WriteString("}\n")
}

func renderEnum(b *strings.Builder, enum *descriptorpb.EnumDescriptorProto, depth int) {
	writeIndent(b, depth)
	fmt.Fprintf(b, "enum %s {\n", enum.GetName())
	for _, v := range enum.GetValue() {
		writeIndent(b, depth+1)
		fmt.Fprintf(b, "%s = %d;\n", v.GetName(), v.GetNumber())
	}
	writeIndent(b, depth)
	b.WriteString("}\n")
}

func renderService(b *strings.Builder, svc *descriptorpb.ServiceDescriptorProto, depth int) {
	writeIndent(b, depth)
	fmt.Fprintf(b, "service %s {\n", svc.GetName())
	for _, m := range svc.GetMethod() {
		writeIndent(b, depth+1)
		fmt.Fprintf(b, "rpc %s(%s) returns (%s);\n", m.GetName(), stripLeadingDot(m.GetInputType()), stripLeadingDot(m.GetOutputType()))
	}
	writeIndent(b, depth)
	b.WriteString("}\n")
}

// renderExtensions groups a flat extension-field list by extendee,
// preserving first-seen extendee order, and emits one "extend X { ... }"
// block per group.
func renderExtensions(b *strings.Builder, fields []*descriptorpb.FieldDescriptorProto, depth int) {
	var order []string
	groups := make(map[string][]*descriptorpb.FieldDescriptorProto)
	for _, f := range fields {
		extendee := stripLeadingDot(f.GetExtendee())
		if _, ok := groups[extendee]; !ok {
			order = append(order, extendee)
		}
		groups[extendee] = append(groups[extendee], f)
	}
	for _, extendee := range order {
		writeIndent(b, depth)
		fmt.Fprintf(b, "extend %s {\n", extendee)
		for _, f := range groups[extendee] {
			writeIndent(b, depth+1)
			b.WriteString(renderField(f))
			b.WriteString("\n")
		}
		writeIndent(b, depth)
		b.WriteString("}\n")
	}
}

func renderField(f *descriptorpb.FieldDescriptorProto) string {
	label := labelKeyword(f.GetLabel())
	typeName := fieldTypeKeyword(f)

	var opts []string
	if f.DefaultValue != nil {
		if f.GetType() == descriptorpb.FieldDescriptorProto_TYPE_STRING {
			opts = append(opts, fmt.Sprintf("default = %q", f.GetDefaultValue()))
		} else {
			opts = append(opts, fmt.Sprintf("default = %s", f.GetDefaultValue()))
		}
	}
	if f.GetOptions().GetDeprecated() {
		opts = append(opts, "deprecated = true")
	}

	optsStr := ""
	if len(opts) > 0 {
		optsStr = " [" + strings.Join(opts, ", ") + "]"
	}
	return fmt.Sprintf("%s %s %s = %d%s;", label, typeName, f.GetName(), f.GetNumber(), optsStr)
}

func labelKeyword(l descriptorpb.FieldDescriptorProto_Label) string {
	switch l {
	case descriptorpb.FieldDescriptorProto_LABEL_REQUIRED:
		return "required"
	case descriptorpb.FieldDescriptorProto_LABEL_REPEATED:
		return "repeated"
	default:
		return "optional"
	}
}

var scalarTypeKeywords = map[descriptorpb.FieldDescriptorProto_Type]string{
	descriptorpb.FieldDescriptorProto_TYPE_DOUBLE:   "double",
	descriptorpb.FieldDescriptorProto_TYPE_FLOAT:    "float",
	descriptorpb.FieldDescriptorProto_TYPE_INT64:    "int64",
	descriptorpb.FieldDescriptorProto_TYPE_UINT64:   "uint64",
	descriptorpb.FieldDescriptorProto_TYPE_INT32:    "int32",
	descriptorpb.FieldDescriptorProto_TYPE_FIXED64:  "fixed64",
	descriptorpb.FieldDescriptorProto_TYPE_FIXED32:  "fixed32",
	descriptorpb.FieldDescriptorProto_TYPE_BOOL:     "bool",
	descriptorpb.FieldDescriptorProto_TYPE_STRING:   "string",
	descriptorpb.FieldDescriptorProto_TYPE_BYTES:    "bytes",
	descriptorpb.FieldDescriptorProto_TYPE_UINT32:   "uint32",
	descriptorpb.FieldDescriptorProto_TYPE_SFIXED32: "sfixed32",
	descriptorpb.FieldDescriptorProto_TYPE_SFIXED64: "sfixed64",
	descriptorpb.FieldDescriptorProto_TYPE_SINT32:   "sint32",
	descriptorpb.FieldDescriptorProto_TYPE_SINT64:   "sint64",
}

func fieldTypeKeyword(f *descriptorpb.FieldDescriptorProto) string {
	switch f.GetType() {
	case descriptorpb.FieldDescriptorProto_TYPE_MESSAGE, descriptorpb.FieldDescriptorProto_TYPE_GROUP, descriptorpb.FieldDescriptorProto_TYPE_ENUM:
		return stripLeadingDot(f.GetTypeName())
	default:
		if kw, ok := scalarTypeKeywords[f.GetType()]; ok {
			return kw
		}
		return stripLeadingDot(f.GetTypeName())
	}
}
