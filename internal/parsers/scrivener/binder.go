package scrivener

import "encoding/xml"

// project is the root of a .scrivx index.
type project struct {
	XMLName xml.Name     `xml:"ScrivenerProject"`
	Version string       `xml:"Version,attr"`
	Binder  []binderItem `xml:"Binder>BinderItem"`
	Labels  []label      `xml:"LabelSettings>Labels>Label"`
}

// binderItem is one node of the binder tree.
type binderItem struct {
	UUID     string       `xml:"UUID,attr"`
	LegacyID string       `xml:"ID,attr"`
	Type     string       `xml:"Type,attr"`
	Title    string       `xml:"Title"`
	MetaData metaData     `xml:"MetaData"`
	Children []binderItem `xml:"Children>BinderItem"`
}

type metaData struct {
	IconFileName string `xml:"IconFileName"`
	LabelID      string `xml:"LabelID"`
}

type label struct {
	ID   string `xml:"ID,attr"`
	Name string `xml:",chardata"`
}

// Binder item types.
const (
	typeDraft    = "DraftFolder"
	typeResearch = "ResearchFolder"
	typeFolder   = "Folder"
	typeText     = "Text"
)

func (b *binderItem) id() string {
	if b.UUID != "" {
		return b.UUID
	}
	return b.LegacyID
}

func (p *project) find(itemType string) *binderItem {
	for i := range p.Binder {
		if p.Binder[i].Type == itemType {
			return &p.Binder[i]
		}
	}
	return nil
}

func (p *project) labelName(id string) string {
	for _, l := range p.Labels {
		if l.ID == id {
			return l.Name
		}
	}
	return ""
}
