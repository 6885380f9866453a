// Package binrec decodes, patches and re-encodes fixed-schema binary record
// files (the SGB1 obstacle maps shipped with the game).
//
// The byte layout of every field kind is declared once in Layout and the
// field order of a record shape is declared in a Schema table, so adding a
// shape means adding a table, not code.
package binrec

import "encoding/binary"

// Kind identifies the wire layout of a field.
type Kind int

const (
	// KindBool is one byte, nonzero is true.
	KindBool Kind = iota
	// KindInt32 is a little-endian signed 32-bit integer.
	KindInt32
	// KindFloat is a little-endian IEEE-754 single.
	KindFloat
	// KindColor is four raw bytes R,G,B,A.
	KindColor
	// KindNullString is a bool flag followed by a string when set.
	KindNullString
	// KindTriBool is four bytes of which only the first is meaningful.
	KindTriBool
	// KindDataType is four bytes, the first indexes Layout.DataTypes.
	KindDataType
	// KindInt32List is a count followed by that many KindInt32.
	KindInt32List
	// KindPoint is two KindFloat (X, Y).
	KindPoint
	// KindPointList is a count followed by that many KindPoint.
	KindPointList
	// KindGroupNames is a count followed by entries of an ignored float
	// and a nullable string whose flag sense is Layout.GroupNameFlagInverted.
	KindGroupNames
)

var kindNames = [...]string{
	KindBool:       "bool",
	KindInt32:      "int32",
	KindFloat:      "float",
	KindColor:      "color",
	KindNullString: "nullable string",
	KindTriBool:    "tri-state bool",
	KindDataType:   "data type",
	KindInt32List:  "int32 list",
	KindPoint:      "point",
	KindPointList:  "point list",
	KindGroupNames: "group names",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}

	return "unknown"
}

// Field is one named, typed slot of a record.
type Field struct {
	Name    string
	Kind    Kind
	Default any
}

// Schema describes one record shape and the file header that carries it.
type Schema struct {
	Name    string
	Magic   [4]byte
	Version uint32
	IDField string
	Fields  []Field
}

// Field returns the field definition by name.
func (s Schema) Field(name string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}

	return Field{}, false
}

// Layout holds the byte-level conventions shared by all schemas. The
// tri-state and data type tables were reverse-engineered from game files
// and are assumptions, not a published format.
type Layout struct {
	// StringLength is the byte order of the 4-byte string length prefix.
	// It differs from the little-endian integer fields.
	StringLength binary.ByteOrder
	// TriTrue and TriFalse are the first-byte values read as true and
	// false; anything else is undefined. TriUndefinedByte is written for
	// undefined.
	TriTrue          byte
	TriFalse         byte
	TriUndefinedByte byte
	// DataTypes maps the first byte of a data type field to its name.
	DataTypes []string
	// GroupNameFlagInverted flips the nullable-string flag inside
	// GroupNames entries: a set flag means "no string follows".
	GroupNameFlagInverted bool
}

// DefaultLayout is the layout produced by the game's map tooling.
var DefaultLayout = Layout{
	StringLength:          binary.BigEndian,
	TriTrue:               0,
	TriFalse:              2,
	TriUndefinedByte:      1,
	DataTypes:             []string{"Text", "Obstacle", "Unit", "Prefab", "Weapon", "Unknown", "Projectile", "Count", "Animation", "Component"},
	GroupNameFlagInverted: true,
}

// ObstacleSchema is the SGB1 version 12 obstacle record.
var ObstacleSchema = Schema{
	Name:    "obstacle",
	Magic:   [4]byte{'S', 'G', 'B', '1'},
	Version: 12,
	IDField: "Id",
	Fields: []Field{
		{Name: "DoCreate", Kind: KindBool, Default: true},
		{Name: "ActivateAtRange", Kind: KindBool},
		{Name: "ActivationRange", Kind: KindFloat},
		{Name: "Active", Kind: KindBool},
		{Name: "AllowMovementReaction", Kind: KindBool},
		{Name: "Ambient", Kind: KindFloat},
		{Name: "Angle", Kind: KindFloat},
		{Name: "AttachedIDs", Kind: KindInt32List},
		{Name: "AttachToID", Kind: KindInt32},
		{Name: "CausesOcculsion", Kind: KindBool},
		{Name: "Clutter", Kind: KindBool},
		{Name: "Collision", Kind: KindBool},
		{Name: "Color", Kind: KindColor},
		{Name: "Comments", Kind: KindNullString},
		{Name: "CreatesShadows", Kind: KindTriBool},
		{Name: "DataType", Kind: KindDataType, Default: "Obstacle"},
		{Name: "DrawVfxOnTop", Kind: KindTriBool},
		{Name: "FlipHorizontal", Kind: KindBool},
		{Name: "FlipVertical", Kind: KindBool},
		{Name: "GroupNames", Kind: KindGroupNames},
		{Name: "HelpTextID", Kind: KindNullString},
		{Name: "Hue", Kind: KindFloat},
		{Name: "Saturation", Kind: KindFloat},
		{Name: "Value", Kind: KindFloat},
		{Name: "Id", Kind: KindInt32},
		{Name: "IgnoreGridManager", Kind: KindBool},
		{Name: "Invert", Kind: KindBool},
		{Name: "Location", Kind: KindPoint},
		{Name: "Name", Kind: KindNullString},
		{Name: "OffsetZ", Kind: KindFloat},
		{Name: "ParallaxAmount", Kind: KindFloat},
		{Name: "Points", Kind: KindPointList},
		{Name: "Scale", Kind: KindFloat, Default: float32(1)},
		{Name: "SkewAngle", Kind: KindFloat},
		{Name: "SkewScale", Kind: KindFloat},
		{Name: "SortIndex", Kind: KindInt32},
		{Name: "StopsLight", Kind: KindTriBool},
		{Name: "Tallness", Kind: KindFloat},
		{Name: "UseBoundsForSortArea", Kind: KindTriBool},
	},
}
