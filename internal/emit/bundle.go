package emit

import "encoding/binary"

// Bundle is the byte-code serializer's input (C7): everything a
// submission's compilation produced, ready to be packed into the exact
// wire image the VM decodes (§4.7).
type Bundle struct {
	// Eval, when non-nil, makes this an Eval payload; Def fields below
	// are ignored. Exactly one of Eval or the Def fields is meaningful.
	Eval []byte

	InitBytes   []byte
	UpdateBytes []byte
	NLast       int
	NodeBodies  []SlotBody
	FuncBodies  []SlotBody
	NNewNodes   int
	NNewFuncs   int
	NNewData    int
}

// SlotBody is one (slot, body) pair inside a Def payload's node/function
// body table.
type SlotBody struct {
	Slot int
	Body []byte
}

// tagEval and tagDef are the wire format's leading discriminant byte.
const (
	tagDef  byte = 0
	tagEval byte = 1
)

// Serialize packs b into the exact wire image (§4.7, §6): a tag byte, a
// back-patched little-endian u16 total size, then either the raw Eval
// instruction stream or the full Def table.
func Serialize(b Bundle) []byte {
	var payload []byte
	if b.Eval != nil {
		payload = append(payload, tagEval)
		payload = append(payload, b.Eval...)
	} else {
		payload = append(payload, tagDef)
		payload = appendU16Field(payload, len(b.InitBytes))
		payload = appendU16Field(payload, len(b.UpdateBytes))
		payload = appendU16Field(payload, b.NLast)
		payload = appendU16Field(payload, len(b.NodeBodies))
		payload = appendU16Field(payload, len(b.FuncBodies))
		payload = appendU16Field(payload, b.NNewNodes)
		payload = appendU16Field(payload, b.NNewFuncs)
		payload = appendU16Field(payload, b.NNewData)
		for _, nb := range b.NodeBodies {
			payload = appendU16Field(payload, nb.Slot)
			payload = appendU16Field(payload, len(nb.Body))
			payload = append(payload, nb.Body...)
		}
		for _, fb := range b.FuncBodies {
			payload = appendU16Field(payload, fb.Slot)
			payload = appendU16Field(payload, len(fb.Body))
			payload = append(payload, fb.Body...)
		}
		payload = append(payload, b.UpdateBytes...)
		payload = append(payload, b.InitBytes...)
	}

	totalSize := 1 + 2 + (len(payload) - 1) // tag + size field + everything after the tag
	out := make([]byte, 0, totalSize)
	out = append(out, payload[0])
	out = binary.LittleEndian.AppendUint16(out, uint16(totalSize))
	out = append(out, payload[1:]...)
	return out
}

func appendU16Field(buf []byte, v int) []byte {
	return binary.LittleEndian.AppendUint16(buf, uint16(v))
}
