package schema

import (
	"github.com/adammathes/ooxmlverify/pkg/ns"
	"github.com/adammathes/ooxmlverify/pkg/report"
)

// Constraint tables for the core PresentationML and DrawingML elements,
// following the ECMA-376 content models. This is the subset of the full
// schema that matters for deciding whether PowerPoint will open a file.

var colorMapValues = []string{
	"bg1", "tx1", "bg2", "tx2", "dk1", "lt1", "dk2", "lt2",
	"accent1", "accent2", "accent3", "accent4", "accent5", "accent6",
	"hlink", "folHlink",
}

var bwModeValues = []string{
	"clr", "auto", "gray", "ltGray", "invGray", "grayWhite",
	"blackGray", "blackWhite", "black", "white", "hidden",
}

var slideLayoutTypes = []string{
	"title", "tx", "twoColTx", "tbl", "txAndChart", "chartAndTx", "dgm",
	"chart", "txAndClipArt", "clipArtAndTx", "titleOnly", "blank",
	"txAndObj", "objAndTx", "objOnly", "obj", "txAndMedia", "mediaAndTx",
	"objOverTx", "txOverObj", "txAndTwoObj", "twoObjAndTx", "twoObjOverTx",
	"fourObj", "vertTx", "clipArtAndVertTx", "vertTitleAndTx",
	"vertTitleAndTxOverChart", "twoObj", "objAndTwoObj", "twoObjAndObj",
	"cust", "secHead", "twoTxTwoObj", "objTx", "picTx",
}

var slideSizeTypes = []string{
	"screen4x3", "letter", "A4", "35mm", "overhead", "banner", "custom",
	"ledger", "A3", "B4ISO", "B5ISO", "B4JIS", "B5JIS", "hagakiCard",
	"screen16x9", "screen16x10",
}

// relID is the r:id attribute carried by every part reference.
func relID() Attribute {
	return Attribute{Space: ns.DocRelationships, Local: "id", Type: LengthType(1, -1), Required: true}
}

func colorMapAttrs() []Attribute {
	names := []string{
		"bg1", "tx1", "bg2", "tx2",
		"accent1", "accent2", "accent3", "accent4", "accent5", "accent6",
		"hlink", "folHlink",
	}
	attrs := make([]Attribute, 0, len(names))
	for _, n := range names {
		attrs = append(attrs, Attribute{Local: n, Type: EnumType(colorMapValues...), Required: true})
	}
	return attrs
}

// PresentationRegistry builds the element constraint table for PPTX
// validation. The result is immutable; build it once per validator and
// share it.
func PresentationRegistry() *Registry {
	r := NewRegistry()
	p := ns.PresentationML
	a := ns.DrawingML

	r.Register(&Element{
		Space: p, Local: "presentation",
		Attributes: []Attribute{
			{Local: "saveSubsetFonts", Type: BoolType()},
			{Local: "autoCompressPictures", Type: BoolType()},
			{Local: "embedTrueTypeFonts", Type: BoolType()},
			{Local: "strictFirstAndLastChars", Type: BoolType()},
			{Local: "removePersonalInfoOnSave", Type: BoolType()},
			{Local: "compatMode", Type: BoolType()},
			{Local: "rtl", Type: BoolType()},
			{Local: "showSpecialPlsOnTitleSld", Type: BoolType()},
			{Local: "firstSlideNum", Type: IntType()},
			{Local: "bookmarkIdSeed", Type: IntRange(1, 2147483647)},
			{Local: "serverZoom", Type: StringType()},
			{Local: "conformance", Type: EnumType("strict", "transitional")},
		},
		Content: Seq(
			ElemN(p, "sldMasterIdLst", 0, 1),
			ElemN(p, "notesMasterIdLst", 0, 1),
			ElemN(p, "handoutMasterIdLst", 0, 1),
			ElemN(p, "sldIdLst", 0, 1),
			ElemN(p, "sldSz", 0, 1),
			ElemN(p, "notesSz", 0, 1),
			ElemN(p, "smartTags", 0, 1),
			ElemN(p, "embeddedFontLst", 0, 1),
			ElemN(p, "custShowLst", 0, 1),
			ElemN(p, "photoAlbum", 0, 1),
			ElemN(p, "custDataLst", 0, 1),
			ElemN(p, "kinsoku", 0, 1),
			ElemN(p, "defaultTextStyle", 0, 1),
			ElemN(p, "modifyVerifier", 0, 1),
			ElemN(p, "extLst", 0, 1),
		),
	})
	for _, tail := range []string{
		"smartTags", "embeddedFontLst", "custShowLst", "photoAlbum",
		"custDataLst", "kinsoku", "defaultTextStyle", "modifyVerifier", "extLst",
	} {
		r.Register(&Element{Space: p, Local: tail, Open: true})
	}

	r.Register(&Element{
		Space: p, Local: "sldMasterIdLst",
		Content: Seq(ElemN(p, "sldMasterId", 0, Unbounded)),
	})
	r.Register(&Element{
		Space: p, Local: "sldMasterId",
		Attributes: []Attribute{
			{Local: "id", Type: IntRange(2147483648, 4294967295)},
			relID(),
		},
		Content: Seq(Any("##any", 0, Unbounded)),
	})

	r.Register(&Element{
		Space: p, Local: "sldIdLst",
		Content: Seq(ElemN(p, "sldId", 0, Unbounded)),
	})
	r.Register(&Element{
		Space: p, Local: "sldId",
		Attributes: []Attribute{
			{Local: "id", Type: IntRange(256, 2147483647), Required: true},
			relID(),
		},
		Content: Seq(Any("##any", 0, Unbounded)),
	})

	r.Register(&Element{
		Space: p, Local: "notesMasterIdLst",
		Content: Seq(ElemN(p, "notesMasterId", 0, 1)),
	})
	r.Register(&Element{
		Space: p, Local: "notesMasterId",
		Attributes: []Attribute{relID()},
	})
	r.Register(&Element{
		Space: p, Local: "handoutMasterIdLst",
		Content: Seq(ElemN(p, "handoutMasterId", 0, 1)),
	})
	r.Register(&Element{
		Space: p, Local: "handoutMasterId",
		Attributes: []Attribute{relID()},
	})

	r.Register(&Element{
		Space: p, Local: "sldSz",
		Attributes: []Attribute{
			{Local: "cx", Type: IntRange(914400, 51206400), Required: true},
			{Local: "cy", Type: IntRange(914400, 51206400), Required: true},
			{Local: "type", Type: EnumType(slideSizeTypes...)},
		},
	})
	r.Register(&Element{
		Space: p, Local: "notesSz",
		Attributes: []Attribute{
			{Local: "cx", Type: IntRange(1, 27273042316900), Required: true},
			{Local: "cy", Type: IntRange(1, 27273042316900), Required: true},
		},
	})

	r.Register(&Element{
		Space: p, Local: "sld",
		Attributes: []Attribute{
			{Local: "showMasterSp", Type: BoolType()},
			{Local: "showMasterPhAnim", Type: BoolType()},
			{Local: "show", Type: BoolType()},
		},
		Content: Seq(
			Elem(p, "cSld"),
			ElemN(p, "clrMapOvr", 0, 1),
			Any("##any", 0, Unbounded),
		),
	})

	r.Register(&Element{
		Space: p, Local: "sldMaster",
		Attributes: []Attribute{{Local: "preserve", Type: BoolType()}},
		Content: Seq(
			Elem(p, "cSld"),
			Elem(p, "clrMap"),
			ElemN(p, "sldLayoutIdLst", 0, 1),
			Any("##any", 0, Unbounded),
		),
	})
	r.Register(&Element{
		Space: p, Local: "clrMap",
		Attributes: colorMapAttrs(),
	})
	r.Register(&Element{
		Space: p, Local: "sldLayoutIdLst",
		Content: Seq(ElemN(p, "sldLayoutId", 0, Unbounded)),
	})
	r.Register(&Element{
		Space: p, Local: "sldLayoutId",
		Attributes: []Attribute{
			{Local: "id", Type: IntRange(2147483648, 4294967295)},
			relID(),
		},
		Content: Seq(Any("##any", 0, Unbounded)),
	})

	r.Register(&Element{
		Space: p, Local: "sldLayout",
		Attributes: []Attribute{
			{Local: "type", Type: EnumType(slideLayoutTypes...)},
			{Local: "matchingName", Type: StringType()},
			{Local: "preserve", Type: BoolType()},
			{Local: "showMasterSp", Type: BoolType()},
			{Local: "showMasterPhAnim", Type: BoolType()},
			{Local: "userDrawn", Type: BoolType()},
		},
		Content: Seq(
			Elem(p, "cSld"),
			ElemN(p, "clrMapOvr", 0, 1),
			Any("##any", 0, Unbounded),
		),
	})

	r.Register(&Element{
		Space: p, Local: "clrMapOvr",
		Content: Seq(Choice(1, 1,
			Elem(a, "masterClrMapping"),
			Elem(a, "overrideClrMapping"),
		)),
	})
	r.Register(&Element{Space: a, Local: "masterClrMapping"})
	r.Register(&Element{
		Space: a, Local: "overrideClrMapping",
		Attributes: colorMapAttrs(),
	})

	r.Register(&Element{
		Space: p, Local: "cSld",
		Attributes: []Attribute{{Local: "name", Type: StringType()}},
		Content: Seq(
			ElemN(p, "bg", 0, 1),
			Elem(p, "spTree"),
			Any("##any", 0, Unbounded),
		),
	})

	r.Register(&Element{
		Space: p, Local: "spTree",
		Content: Seq(
			Elem(p, "nvGrpSpPr"),
			Elem(p, "grpSpPr"),
			Choice(0, Unbounded,
				Elem(p, "sp"),
				Elem(p, "grpSp"),
				Elem(p, "graphicFrame"),
				Elem(p, "cxnSp"),
				Elem(p, "pic"),
			),
			Any("##any", 0, Unbounded),
		),
	})

	r.Register(&Element{
		Space: p, Local: "nvGrpSpPr",
		Content: Seq(
			Elem(p, "cNvPr"),
			Elem(p, "cNvGrpSpPr"),
			Elem(p, "nvPr"),
		),
	})
	r.Register(&Element{
		Space: p, Local: "cNvPr",
		Attributes: []Attribute{
			{Local: "id", Type: IntRange(0, 4294967295), Required: true},
			{Local: "name", Type: StringType(), Required: true},
			{Local: "descr", Type: StringType()},
			{Local: "hidden", Type: BoolType()},
			{Local: "title", Type: StringType(), Since: report.Office2010},
		},
		Content: Seq(Any("##any", 0, Unbounded)),
	})
	r.Register(&Element{
		Space: p, Local: "cNvGrpSpPr",
		Content: Seq(Any("##any", 0, Unbounded)),
	})
	r.Register(&Element{
		Space: p, Local: "cNvSpPr",
		Attributes: []Attribute{{Local: "txBox", Type: BoolType()}},
		Content:    Seq(Any("##any", 0, Unbounded)),
	})
	r.Register(&Element{
		Space: p, Local: "nvPr",
		Attributes: []Attribute{
			{Local: "isPhoto", Type: BoolType()},
			{Local: "userDrawn", Type: BoolType()},
		},
		Content: Seq(Any("##any", 0, Unbounded)),
	})

	r.Register(&Element{
		Space: p, Local: "sp",
		Content: Seq(
			Elem(p, "nvSpPr"),
			Elem(p, "spPr"),
			ElemN(p, "style", 0, 1),
			ElemN(p, "txBody", 0, 1),
			Any("##any", 0, Unbounded),
		),
	})
	r.Register(&Element{
		Space: p, Local: "nvSpPr",
		Content: Seq(
			Elem(p, "cNvPr"),
			Elem(p, "cNvSpPr"),
			Elem(p, "nvPr"),
		),
	})
	r.Register(&Element{
		Space: p, Local: "spPr",
		Attributes: []Attribute{{Local: "bwMode", Type: EnumType(bwModeValues...)}},
		Content: Seq(
			ElemN(a, "xfrm", 0, 1),
			Any("##any", 0, Unbounded),
		),
	})
	r.Register(&Element{
		Space: p, Local: "grpSpPr",
		Attributes: []Attribute{{Local: "bwMode", Type: EnumType(bwModeValues...)}},
		Content: Seq(
			ElemN(a, "xfrm", 0, 1),
			Any("##any", 0, Unbounded),
		),
	})

	r.Register(&Element{
		Space: a, Local: "xfrm",
		Attributes: []Attribute{
			{Local: "rot", Type: IntType()},
			{Local: "flipH", Type: BoolType()},
			{Local: "flipV", Type: BoolType()},
		},
		Content: Seq(
			ElemN(a, "off", 0, 1),
			ElemN(a, "ext", 0, 1),
			ElemN(a, "chOff", 0, 1),
			ElemN(a, "chExt", 0, 1),
		),
	})
	r.Register(&Element{
		Space: a, Local: "off",
		Attributes: []Attribute{
			{Local: "x", Type: IntRange(-2147483648, 2147483647), Required: true},
			{Local: "y", Type: IntRange(-2147483648, 2147483647), Required: true},
		},
	})
	r.Register(&Element{
		Space: a, Local: "ext",
		Attributes: []Attribute{
			{Local: "cx", Type: IntRange(0, 2147483647), Required: true},
			{Local: "cy", Type: IntRange(0, 2147483647), Required: true},
		},
	})
	r.Register(&Element{
		Space: a, Local: "chOff",
		Attributes: []Attribute{
			{Local: "x", Type: IntRange(-2147483648, 2147483647), Required: true},
			{Local: "y", Type: IntRange(-2147483648, 2147483647), Required: true},
		},
	})
	r.Register(&Element{
		Space: a, Local: "chExt",
		Attributes: []Attribute{
			{Local: "cx", Type: IntRange(0, 2147483647), Required: true},
			{Local: "cy", Type: IntRange(0, 2147483647), Required: true},
		},
	})

	return r
}
