package ywriter

import (
	"fmt"
	"strings"

	"github.com/custodia-labs/quill/internal/core/domain"
	"github.com/custodia-labs/quill/internal/logger"
	"github.com/custodia-labs/quill/internal/parsers"
)

// document mirrors the parts of a YWRITER7 file that quill reads.
type document struct {
	Project struct {
		Title string `xml:"Title"`
	} `xml:"PROJECT"`
	Locations  []entity  `xml:"LOCATIONS>LOCATION"`
	Items      []entity  `xml:"ITEMS>ITEM"`
	Characters []entity  `xml:"CHARACTERS>CHARACTER"`
	Scenes     []scene   `xml:"SCENES>SCENE"`
	Chapters   []chapter `xml:"CHAPTERS>CHAPTER"`
}

type chapter struct {
	ID       string   `xml:"ID"`
	Title    string   `xml:"Title"`
	Unused   *string  `xml:"Unused"`
	Type     string   `xml:"Type"`
	SceneIDs []string `xml:"Scenes>ScID"`
}

type scene struct {
	ID         string   `xml:"ID"`
	Title      string   `xml:"Title"`
	Desc       string   `xml:"Desc"`
	Unused     *string  `xml:"Unused"`
	Goal       string   `xml:"Goal"`
	Conflict   string   `xml:"Conflict"`
	Outcome    string   `xml:"Outcome"`
	Characters []string `xml:"Characters>CharID"`
	Locations  []string `xml:"Locations>LocID"`
	Items      []string `xml:"Items>ItID"`
}

type entity struct {
	ID       string `xml:"ID"`
	Title    string `xml:"Title"`
	FullName string `xml:"FullName"`
	AKA      string `xml:"AKA"`
	Desc     string `xml:"Desc"`
	Bio      string `xml:"Bio"`
	Goals    string `xml:"Goals"`
	Notes    string `xml:"Notes"`
}

// Source id prefixes keep ids unique across entity tables.
const (
	prefixChapter   = "ch"
	prefixScene     = "sc"
	prefixCharacter = "cr"
	prefixLocation  = "lc"
	prefixItem      = "it"
)

// isUnused reports yWriter's "unused" flag: the element is present.
func isUnused(flag *string) bool {
	return flag != nil
}

func (d *document) toParsed(path string) *domain.ParsedProject {
	project := &domain.ParsedProject{
		Name:   strings.TrimSpace(d.Project.Title),
		Format: domain.FormatYWriter,
	}
	if project.Name == "" {
		project.Name = parsers.ProjectNameFromPath(path)
	}

	scenes := make(map[string]*scene, len(d.Scenes))
	for i := range d.Scenes {
		scenes[strings.TrimSpace(d.Scenes[i].ID)] = &d.Scenes[i]
	}

	for _, ch := range d.Chapters {
		if isUnused(ch.Unused) || (strings.TrimSpace(ch.Type) != "" && strings.TrimSpace(ch.Type) != "0") {
			continue
		}
		pc := domain.ParsedChapter{
			Title:    titleOr(ch.Title, "Chapter", len(project.Chapters)),
			SourceID: domain.SourceIDOf(prefixed(prefixChapter, ch.ID)),
		}
		for _, id := range ch.SceneIDs {
			sc, ok := scenes[strings.TrimSpace(id)]
			if !ok {
				logger.Debug("ywriter: chapter %s lists unknown scene %s", ch.ID, id)
				continue
			}
			if isUnused(sc.Unused) {
				continue
			}
			ps, links := sc.toParsed(len(pc.Scenes))
			pc.Scenes = append(pc.Scenes, ps)
			project.Associations = append(project.Associations, links...)
		}
		project.Chapters = append(project.Chapters, pc)
	}

	for _, e := range d.Characters {
		project.References = append(project.References, e.toParsed(domain.ReferenceCharacter, prefixCharacter))
	}
	for _, e := range d.Locations {
		project.References = append(project.References, e.toParsed(domain.ReferenceLocation, prefixLocation))
	}
	for _, e := range d.Items {
		project.References = append(project.References, e.toParsed(domain.ReferenceItem, prefixItem))
	}
	return project
}

// toParsed maps a scene. Desc is the synopsis and first beat; the goal,
// conflict and outcome fields become further beats.
func (s *scene) toParsed(index int) (domain.ParsedScene, []domain.ParsedAssociation) {
	id := prefixed(prefixScene, s.ID)
	ps := domain.ParsedScene{
		Title:    titleOr(s.Title, "Scene", index),
		Synopsis: strings.TrimSpace(s.Desc),
		SourceID: domain.SourceIDOf(id),
	}
	if ps.Synopsis != "" {
		ps.Beats = append(ps.Beats, domain.ParsedBeat{
			Content:  ps.Synopsis,
			SourceID: domain.SummarySourceID(ps.SourceID),
		})
	}
	for _, f := range []struct{ name, value string }{
		{"goal", s.Goal},
		{"conflict", s.Conflict},
		{"outcome", s.Outcome},
	} {
		if v := strings.TrimSpace(f.value); v != "" {
			beat := domain.ParsedBeat{Content: v}
			if id != "" {
				beat.SourceID = domain.SourceIDOf(id + "#" + f.name)
			}
			ps.Beats = append(ps.Beats, beat)
		}
	}

	var links []domain.ParsedAssociation
	link := func(prefix string, ids []string) {
		for _, rid := range ids {
			ref := prefixed(prefix, rid)
			if ref == "" || id == "" {
				continue
			}
			ps.ReferenceIDs = append(ps.ReferenceIDs, ref)
			links = append(links, domain.ParsedAssociation{
				SceneSourceID:     id,
				ReferenceSourceID: ref,
				SourceID:          domain.SourceIDOf(id + ":" + ref),
			})
		}
	}
	link(prefixCharacter, s.Characters)
	link(prefixLocation, s.Locations)
	link(prefixItem, s.Items)
	return ps, links
}

func (e entity) toParsed(kind domain.ReferenceKind, prefix string) domain.ParsedReference {
	attrs := make(map[string]string)
	for key, v := range map[string]string{
		"description": e.Desc,
		"bio":         e.Bio,
		"goals":       e.Goals,
		"notes":       e.Notes,
		"full_name":   e.FullName,
		"aka":         e.AKA,
	} {
		if v = strings.TrimSpace(v); v != "" {
			attrs[key] = v
		}
	}
	return domain.ParsedReference{
		Kind:       kind,
		Name:       strings.TrimSpace(e.Title),
		Attributes: attrs,
		SourceID:   domain.SourceIDOf(prefixed(prefix, e.ID)),
	}
}

func prefixed(prefix, id string) string {
	id = strings.TrimSpace(id)
	if id == "" {
		return ""
	}
	return prefix + id
}

func titleOr(title, prefix string, index int) string {
	if t := strings.TrimSpace(title); t != "" {
		return t
	}
	return fmt.Sprintf("%s %d", prefix, index+1)
}
