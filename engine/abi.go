package engine

import (
	"context"
	"encoding/binary"
	"math"
	"strconv"

	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	xatlas "github.com/wippyai/xatlas-go"
	"github.com/wippyai/xatlas-go/errors"
	"github.com/wippyai/xatlas-go/geometry"
	"github.com/wippyai/xatlas-go/native"
)

// Guest exports.
const (
	exportMemory          = "memory"
	exportMalloc          = "malloc"
	exportFree            = "free"
	exportCreate          = "xatlas_create"
	exportDestroy         = "xatlas_destroy"
	exportProgressLogging = "xatlas_set_progress_logging"
	exportAddMesh         = "xatlas_add_mesh"
	exportGenerate        = "xatlas_generate"
	exportResultFree      = "xatlas_result_free"
)

var requiredExports = []string{
	exportMalloc, exportFree, exportCreate, exportDestroy, exportProgressLogging,
	exportAddMesh, exportGenerate, exportResultFree,
}

// Host imports.
const (
	importModule   = "env"
	importProgress = "xatlas_progress"
)

const (
	chartOptionsSize  = 44
	packOptionsSize   = 40
	resultHeaderSize  = 32
	meshRecordSize    = 48
	subMeshRecordSize = 12
)

var le = binary.LittleEndian

// memory is guest linear memory with a known size.
type memory interface {
	xatlas.Memory
	xatlas.MemorySizer
}

// guest is the part of an instantiated xatlas module the ABI drives.
type guest interface {
	memory
	xatlas.Allocator
	Call(ctx context.Context, name string, params ...uint64) ([]uint64, error)
}

// AddMeshError mirrors xatlas::AddMeshError.
type AddMeshError uint32

const (
	AddMeshSuccess AddMeshError = iota
	AddMeshFailed
	AddMeshIndexOutOfRange
	AddMeshInvalidFaceVertexCount
	AddMeshInvalidIndexCount
)

func (e AddMeshError) String() string {
	switch e {
	case AddMeshSuccess:
		return "success"
	case AddMeshFailed:
		return "unspecified error"
	case AddMeshIndexOutOfRange:
		return "index out of range"
	case AddMeshInvalidFaceVertexCount:
		return "invalid face vertex count"
	case AddMeshInvalidIndexCount:
		return "invalid index count"
	}
	return "unknown error " + strconv.Itoa(int(e))
}

func boolU32(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}

// encodeChartOptions lays out xatlas::ChartOptions:
//
//	0  maxChartArea f32          24 textureSeamWeight f32
//	4  maxBoundaryLength f32     28 maxCost f32
//	8  normalDeviationWeight f32 32 maxIterations u32
//	12 roundnessWeight f32       36 useInputMeshUvs u32
//	16 straightnessWeight f32    40 fixWinding u32
//	20 normalSeamWeight f32
func encodeChartOptions(o native.ChartOptions) []byte {
	b := make([]byte, chartOptionsSize)
	le.PutUint32(b[0:], math.Float32bits(o.MaxChartArea))
	le.PutUint32(b[4:], math.Float32bits(o.MaxBoundaryLength))
	le.PutUint32(b[8:], math.Float32bits(o.NormalDeviationWeight))
	le.PutUint32(b[12:], math.Float32bits(o.RoundnessWeight))
	le.PutUint32(b[16:], math.Float32bits(o.StraightnessWeight))
	le.PutUint32(b[20:], math.Float32bits(o.NormalSeamWeight))
	le.PutUint32(b[24:], math.Float32bits(o.TextureSeamWeight))
	le.PutUint32(b[28:], math.Float32bits(o.MaxCost))
	le.PutUint32(b[32:], o.MaxIterations)
	le.PutUint32(b[36:], boolU32(o.UseInputMeshUvs))
	le.PutUint32(b[40:], boolU32(o.FixWinding))
	return b
}

// encodePackOptions lays out xatlas::PackOptions:
//
//	0  maxChartSize u32   20 blockAlign u32
//	4  padding u32        24 bruteForce u32
//	8  texelsPerUnit f32  28 createImage u32
//	12 resolution u32     32 rotateChartsToAxis u32
//	16 bilinear u32       36 rotateCharts u32
func encodePackOptions(o native.PackOptions) []byte {
	b := make([]byte, packOptionsSize)
	le.PutUint32(b[0:], o.MaxChartSize)
	le.PutUint32(b[4:], o.Padding)
	le.PutUint32(b[8:], math.Float32bits(o.TexelsPerUnit))
	le.PutUint32(b[12:], o.Resolution)
	le.PutUint32(b[16:], boolU32(o.Bilinear))
	le.PutUint32(b[20:], boolU32(o.BlockAlign))
	le.PutUint32(b[24:], boolU32(o.BruteForce))
	le.PutUint32(b[28:], boolU32(o.CreateImage))
	le.PutUint32(b[32:], boolU32(o.RotateChartsToAxis))
	le.PutUint32(b[36:], boolU32(o.RotateCharts))
	return b
}

func encodeU16s(v []uint16) []byte {
	b := make([]byte, len(v)*2)
	for i, x := range v {
		le.PutUint16(b[i*2:], x)
	}
	return b
}

func encodeF32s(v []float32) []byte {
	b := make([]byte, len(v)*4)
	for i, x := range v {
		le.PutUint32(b[i*4:], math.Float32bits(x))
	}
	return b
}

// abi marshals native.Module calls onto a guest.
type abi struct {
	g guest
}

// arena tracks allocations made for one call so they can be released together.
type arena struct {
	g    guest
	ptrs []uint32
}

// put copies data into guest memory. Empty data yields a null pointer.
func (a *arena) put(data []byte) (uint32, error) {
	if len(data) == 0 {
		return 0, nil
	}
	ptr, err := a.g.Alloc(uint32(len(data)))
	if err != nil {
		return 0, err
	}
	a.ptrs = append(a.ptrs, ptr)
	if err := a.g.Write(ptr, data); err != nil {
		return 0, err
	}
	return ptr, nil
}

func (a *arena) release() {
	for _, p := range a.ptrs {
		a.g.Free(p)
	}
	a.ptrs = nil
}

func (a abi) status(ctx context.Context, name string, params ...uint64) (uint32, error) {
	res, err := a.g.Call(ctx, name, params...)
	if err != nil {
		return 0, err
	}
	if len(res) == 0 {
		return 0, nil
	}
	return api.DecodeU32(res[0]), nil
}

func (a abi) createAtlas(ctx context.Context) error {
	st, err := a.status(ctx, exportCreate)
	if err != nil {
		return err
	}
	if st != 0 {
		return errors.New(errors.PhaseNative, errors.KindNativeCall).
			Value(st).
			Detail("%s returned %d", exportCreate, st).
			Build()
	}
	return nil
}

func (a abi) destroyAtlas(ctx context.Context) error {
	_, err := a.g.Call(ctx, exportDestroy)
	return err
}

func (a abi) setProgressLogging(ctx context.Context, enabled bool) error {
	_, err := a.g.Call(ctx, exportProgressLogging, uint64(boolU32(enabled)))
	return err
}

func validateMesh(m *native.MeshData) error {
	if len(m.Positions) == 0 || len(m.Positions)%3 != 0 {
		return errors.InvalidData(errors.PhaseNative, []string{m.ID, geometry.AttrPosition},
			"positions must hold 3 components per vertex")
	}
	vc := m.VertexCount()
	if len(m.Indices)%3 != 0 {
		return errors.InvalidData(errors.PhaseNative, []string{m.ID, "index"},
			"index count must be a multiple of 3")
	}
	if m.Normals != nil && len(m.Normals) != vc*3 {
		return errors.InvalidData(errors.PhaseNative, []string{m.ID, geometry.AttrNormal},
			"normal count does not match vertex count")
	}
	if m.UVs != nil && len(m.UVs) != vc*2 {
		return errors.InvalidData(errors.PhaseNative, []string{m.ID, geometry.AttrUV},
			"uv count does not match vertex count")
	}
	return nil
}

func (a abi) addMesh(ctx context.Context, m native.MeshData) error {
	if err := validateMesh(&m); err != nil {
		return err
	}

	ar := &arena{g: a.g}
	defer ar.release()

	idxPtr, err := ar.put(encodeU16s(m.Indices))
	if err != nil {
		return err
	}
	posPtr, err := ar.put(encodeF32s(m.Positions))
	if err != nil {
		return err
	}
	nrmPtr, err := ar.put(encodeF32s(m.Normals))
	if err != nil {
		return err
	}
	uvPtr, err := ar.put(encodeF32s(m.UVs))
	if err != nil {
		return err
	}
	idPtr, err := ar.put([]byte(m.ID))
	if err != nil {
		return err
	}

	st, err := a.status(ctx, exportAddMesh,
		uint64(idxPtr), uint64(len(m.Indices)),
		uint64(posPtr), uint64(nrmPtr), uint64(uvPtr),
		uint64(m.VertexCount()),
		uint64(idPtr), uint64(len(m.ID)),
		uint64(boolU32(m.UseNormals)), uint64(boolU32(m.UseInputUVs)),
		api.EncodeF32(m.Scale),
	)
	if err != nil {
		return err
	}
	if code := AddMeshError(st); code != AddMeshSuccess {
		return errors.New(errors.PhaseNative, errors.KindInvalidData).
			Path(m.ID).
			Value(code).
			Detail("add mesh: %s", code).
			Build()
	}
	return nil
}

func (a abi) generate(ctx context.Context, chart native.ChartOptions, pack native.PackOptions, computeCharts bool) (*native.Atlas, error) {
	ar := &arena{g: a.g}
	defer ar.release()

	chartPtr, err := ar.put(encodeChartOptions(chart))
	if err != nil {
		return nil, err
	}
	packPtr, err := ar.put(encodePackOptions(pack))
	if err != nil {
		return nil, err
	}

	res, err := a.g.Call(ctx, exportGenerate, uint64(chartPtr), uint64(packPtr), uint64(boolU32(computeCharts)))
	if err != nil {
		return nil, err
	}
	if len(res) == 0 || api.DecodeU32(res[0]) == 0 {
		return nil, errors.New(errors.PhaseNative, errors.KindNativeCall).
			Detail("%s returned a null result", exportGenerate).
			Build()
	}
	ptr := api.DecodeU32(res[0])
	defer func() {
		if _, err := a.g.Call(ctx, exportResultFree, uint64(ptr)); err != nil {
			Logger().Warn("free atlas result", zap.Error(err))
		}
	}()

	return decodeAtlas(a.g, ptr)
}

// span returns count*elem as a byte length, failing when it leaves the
// 32-bit address space.
func span(count, elem uint32) (uint32, error) {
	n := uint64(count) * uint64(elem)
	if n > math.MaxUint32 {
		return 0, errors.Overflow(errors.PhaseNative, nil, n, "uint32")
	}
	return uint32(n), nil
}

func readU32s(m xatlas.Memory, ptr, count uint32) ([]uint32, error) {
	if ptr == 0 || count == 0 {
		return nil, nil
	}
	n, err := span(count, 4)
	if err != nil {
		return nil, err
	}
	b, err := m.Read(ptr, n)
	if err != nil {
		return nil, err
	}
	out := make([]uint32, count)
	for i := range out {
		out[i] = le.Uint32(b[i*4:])
	}
	return out, nil
}

func readF32s(m xatlas.Memory, ptr, count uint32) ([]float32, error) {
	if ptr == 0 || count == 0 {
		return nil, nil
	}
	n, err := span(count, 4)
	if err != nil {
		return nil, err
	}
	b, err := m.Read(ptr, n)
	if err != nil {
		return nil, err
	}
	out := make([]float32, count)
	for i := range out {
		out[i] = math.Float32frombits(le.Uint32(b[i*4:]))
	}
	return out, nil
}

// decodeAtlas copies a result out of guest memory.
//
// Header (32 bytes):
//
//	0 width u32   8 atlasCount u32  16 meshCount u32      24 meshes ptr
//	4 height u32 12 chartCount u32  20 texelsPerUnit f32  28 image ptr (0 if none)
//
// Mesh record (48 bytes):
//
//	0 id ptr      12 positions ptr  24 coords1 ptr     36 oldIndexes ptr
//	4 id len      16 normals ptr    28 index count     40 subMesh count
//	8 vertexCount 20 coords ptr     32 index ptr (u32) 44 subMesh ptr
//
// SubMesh record (12 bytes): index, count, atlasIndex.
// Image: atlasCount pages of width*height RGBA u32.
func decodeAtlas(m memory, ptr uint32) (*native.Atlas, error) {
	hdr, err := m.Read(ptr, resultHeaderSize)
	if err != nil {
		return nil, err
	}

	atlas := &native.Atlas{
		Width:         int(le.Uint32(hdr[0:])),
		Height:        int(le.Uint32(hdr[4:])),
		AtlasCount:    int(le.Uint32(hdr[8:])),
		ChartCount:    int(le.Uint32(hdr[12:])),
		MeshCount:     int(le.Uint32(hdr[16:])),
		TexelsPerUnit: math.Float32frombits(le.Uint32(hdr[20:])),
	}
	meshesPtr := le.Uint32(hdr[24:])
	imagePtr := le.Uint32(hdr[28:])

	meshCount := le.Uint32(hdr[16:])
	if meshCount > 0 && meshesPtr == 0 {
		return nil, errors.InvalidData(errors.PhaseNative, []string{"meshes"}, "null mesh table")
	}
	if uint64(meshCount)*meshRecordSize > uint64(m.Size()) {
		return nil, errors.New(errors.PhaseNative, errors.KindOutOfBounds).
			Path("meshes").
			Value(meshCount).
			Detail("mesh count %d does not fit in %d bytes of guest memory", meshCount, m.Size()).
			Build()
	}
	atlas.Meshes = make([]native.MeshResult, meshCount)
	for i := uint32(0); i < meshCount; i++ {
		off, err := span(i, meshRecordSize)
		if err != nil {
			return nil, err
		}
		if err := decodeMesh(m, meshesPtr+off, &atlas.Meshes[i]); err != nil {
			return nil, errors.Wrap(errors.PhaseNative, errors.KindInvalidData, err, "decode mesh "+strconv.Itoa(int(i)))
		}
	}

	if imagePtr != 0 && atlas.AtlasCount > 0 {
		page, err := span(le.Uint32(hdr[0:]), le.Uint32(hdr[4:]))
		if err != nil {
			return nil, err
		}
		pageBytes, err := span(page, 4)
		if err != nil {
			return nil, err
		}
		atlas.Images = make([][]uint32, atlas.AtlasCount)
		for i := range atlas.Images {
			off, err := span(uint32(i), pageBytes)
			if err != nil {
				return nil, err
			}
			if atlas.Images[i], err = readU32s(m, imagePtr+off, page); err != nil {
				return nil, err
			}
		}
	}

	return atlas, nil
}

func decodeMesh(m xatlas.Memory, ptr uint32, out *native.MeshResult) error {
	rec, err := m.Read(ptr, meshRecordSize)
	if err != nil {
		return err
	}
	field := func(i int) uint32 { return le.Uint32(rec[i*4:]) }

	if idLen := field(1); idLen > 0 {
		id, err := m.Read(field(0), idLen)
		if err != nil {
			return err
		}
		out.ID = string(id)
	}

	vc := field(2)
	if vc > math.MaxUint32/16 {
		return errors.Overflow(errors.PhaseNative, []string{"vertexCount"}, vc, "uint32")
	}
	if out.Positions, err = readF32s(m, field(3), vc*3); err != nil {
		return err
	}
	if out.Normals, err = readF32s(m, field(4), vc*3); err != nil {
		return err
	}
	if out.Coords, err = readF32s(m, field(5), vc*2); err != nil {
		return err
	}
	if out.Coords1, err = readF32s(m, field(6), vc*2); err != nil {
		return err
	}
	if out.Index, err = readU32s(m, field(8), field(7)); err != nil {
		return err
	}
	if out.OldIndexes, err = readU32s(m, field(9), vc); err != nil {
		return err
	}

	if n := field(10); n > 0 {
		if n > math.MaxUint32/subMeshRecordSize {
			return errors.Overflow(errors.PhaseNative, []string{"subMeshCount"}, n, "uint32")
		}
		raw, err := readU32s(m, field(11), n*3)
		if err != nil {
			return err
		}
		out.SubMeshes = make([]geometry.SubMesh, n)
		for i := range out.SubMeshes {
			out.SubMeshes[i] = geometry.SubMesh{
				Index:      int(raw[i*3]),
				Count:      int(raw[i*3+1]),
				AtlasIndex: int(raw[i*3+2]),
			}
		}
	}
	return nil
}
