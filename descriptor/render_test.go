package descriptor_test

import (
	"strings"
	"testing"

	"github.com/netwrix/iworkcore/descriptor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/descriptorpb"
)

func boolPtr(b bool) *bool { return &b }

func TestRenderDefaultsSyntaxToProto2(t *testing.T) {
	f := &descriptor.ProtoFile{
		Path:       "a.proto",
		Descriptor: &descriptorpb.FileDescriptorProto{Name: strPtr("a.proto")},
	}
	src, err := descriptor.Render(f)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(src, `syntax = "proto2";`))
}

func TestRenderImportsAndPackage(t *testing.T) {
	f := &descriptor.ProtoFile{
		Descriptor: &descriptorpb.FileDescriptorProto{
			Name:       strPtr("b.proto"),
			Dependency: []string{"a.proto"},
			Package:    strPtr("things.v1"),
		},
	}
	src, err := descriptor.Render(f)
	require.NoError(t, err)
	assert.Contains(t, src, `import "a.proto";`)
	assert.Contains(t, src, `package things.v1;`)
}

func TestRenderFieldWithDefaultAndDeprecated(t *testing.T) {
	f := &descriptor.ProtoFile{
		Descriptor: &descriptorpb.FileDescriptorProto{
			Name: strPtr("a.proto"),
			MessageType: []*descriptorpb.DescriptorProto{
				{
					Name: strPtr("Thing"),
					Field: []*descriptorpb.FieldDescriptorProto{
						{
							Name:         strPtr("label"),
							Number:       i32Ptr(1),
							Label:        descriptorpb.FieldDescriptorProto_LABEL_OPTIONAL.Enum(),
							Type:         descriptorpb.FieldDescriptorProto_TYPE_STRING.Enum(),
							DefaultValue: strPtr("unnamed"),
							Options:      &descriptorpb.FieldOptions{Deprecated: boolPtr(true)},
						},
					},
				},
			},
		},
	}
	src, err := descriptor.Render(f)
	require.NoError(t, err)
	assert.Contains(t, src, `optional string label = 1 [default = "unnamed", deprecated = true];`)
}

func TestRenderNestedEnumBeforeNestedMessage(t *testing.T) {
	f := &descriptor.ProtoFile{
		Descriptor: &descriptorpb.FileDescriptorProto{
			Name: strPtr("a.proto"),
			MessageType: []*descriptorpb.DescriptorProto{
				{
					Name: strPtr("Outer"),
					EnumType: []*descriptorpb.EnumDescriptorProto{
						{
							Name: strPtr("Status"),
							Value: []*descriptorpb.EnumValueDescriptorProto{
								{Name: strPtr("ACTIVE"), Number: i32Ptr(0)},
							},
						},
					},
					NestedType: []*descriptorpb.DescriptorProto{
						{Name: strPtr("Inner")},
					},
				},
			},
		},
	}
	src, err := descriptor.Render(f)
	require.NoError(t, err)

	enumIdx := strings.Index(src, "enum Status")
	innerIdx := strings.Index(src, "message Inner")
	require.NotEqual(t, -1, enumIdx)
	require.NotEqual(t, -1, innerIdx)
	assert.Less(t, enumIdx, innerIdx)
}

func TestRenderReservedAndExtensionRanges(t *testing.T) {
	f := &descriptor.ProtoFile{
		Descriptor: &descriptorpb.FileDescriptorProto{
			Name: strPtr("a.proto"),
			MessageType: []*descriptorpb.DescriptorProto{
				{
					Name: strPtr("Thing"),
					ReservedRange: []*descriptorpb.DescriptorProto_ReservedRange{
						{Start: i32Ptr(2), End: i32Ptr(5)},
					},
					ExtensionRange: []*descriptorpb.DescriptorProto_ExtensionRange{
						{Start: i32Ptr(100), End: i32Ptr(201)},
					},
				},
			},
		},
	}
	src, err := descriptor.Render(f)
	require.NoError(t, err)
	assert.Contains(t, src, "reserved 2 to 4;")
	assert.Contains(t, src, "extensions 100 to 200;")
}

func TestRenderServiceRPC(t *testing.T) {
	f := &descriptor.ProtoFile{
		Descriptor: &descriptorpb.FileDescriptorProto{
			Name: strPtr("a.proto"),
			Service: []*descriptorpb.ServiceDescriptorProto{
				{
					Name: strPtr("Things"),
					Method: []*descriptorpb.MethodDescriptorProto{
						{Name: strPtr("Get"), InputType: strPtr(".things.v1.GetRequest"), OutputType: strPtr(".things.v1.GetResponse")},
					},
				},
			},
		},
	}
	src, err := descriptor.Render(f)
	require.NoError(t, err)
	assert.Contains(t, src, "rpc Get(things.v1.GetRequest) returns (things.v1.GetResponse);")
}

func TestRenderAllFollowsSortedOrder(t *testing.T) {
	a := buildFileDescriptor("a.proto", nil)
	b := buildFileDescriptor("b.proto", []string{"a.proto"})
	files := []*descriptor.ProtoFile{
		{Path: "b.proto", Dependencies: []string{"a.proto"}, Descriptor: b},
		{Path: "a.proto", Descriptor: a},
	}
	sorted, err := descriptor.Sort(files)
	require.NoError(t, err)
	require.NoError(t, descriptor.RenderAll(sorted))

	assert.Equal(t, "a.proto", sorted[0].Path)
	assert.True(t, strings.HasPrefix(sorted[0].RenderedSource, `syntax = "proto2";`))
	assert.Contains(t, sorted[1].RenderedSource, `import "a.proto";`)
}
