// Package bump rewrites version numbers in project metadata files: NuGet
// specs, MSBuild props, WiX localisation strings and plain text sources.
package bump

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/beevik/etree"

	"relkit/src/logger"
	"relkit/src/version"
)

var (
	// ErrElementNotFound is returned when a required element is absent.
	ErrElementNotFound = errors.New("element not found")
	// ErrNotNuspec is returned when a nuspec operation is given another file.
	ErrNotNuspec = errors.New("not a nuspec file")
)

// Change records one rewritten value.
type Change struct {
	Name string
	From string
	To   string
}

// Element paths match on local names, so default namespaces such as the
// nuspec schema URI do not need to be spelled out.
const nuspecVersionPath = ".//metadata/version"

func load(path string) (*etree.Document, error) {
	doc := etree.NewDocument()
	doc.ReadSettings.PreserveCData = true
	if err := doc.ReadFromFile(path); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if doc.Root() == nil {
		return nil, fmt.Errorf("failed to parse %s: no root element", path)
	}
	return doc, nil
}

func save(doc *etree.Document, path string) error {
	if err := doc.WriteToFile(path); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func isNuspec(path string) bool {
	return filepath.Ext(path) == ".nuspec"
}

// ExtractNuspecVersion returns the text of metadata/version.
func ExtractNuspecVersion(path string) (string, error) {
	if !isNuspec(path) {
		return "", fmt.Errorf("%w: %s", ErrNotNuspec, path)
	}
	doc, err := load(path)
	if err != nil {
		return "", err
	}
	el := doc.Root().FindElement(nuspecVersionPath)
	if el == nil {
		return "", fmt.Errorf("%w: could not find metadata/version element in %s", ErrElementNotFound, path)
	}
	return el.Text(), nil
}

// NuspecVersion sets metadata/version to a semantic version.
func NuspecVersion(path, v string) (*Change, error) {
	if !isNuspec(path) {
		return nil, fmt.Errorf("%w: %s", ErrNotNuspec, path)
	}
	if err := version.CheckSemantic(v); err != nil {
		return nil, err
	}
	doc, err := load(path)
	if err != nil {
		return nil, err
	}
	el := doc.Root().FindElement(nuspecVersionPath)
	if el == nil {
		return nil, fmt.Errorf("%w: could not find metadata/version element in %s", ErrElementNotFound, path)
	}
	change := &Change{Name: "version", From: el.Text(), To: v}
	el.SetText(v)
	return change, save(doc, path)
}

// PropsElement sets the text of PropertyGroup/<element>, e.g. the
// ReleaseVersion of a Directory.Build.props or .wixproj file.
func PropsElement(path, element, v string) (*Change, error) {
	doc, err := load(path)
	if err != nil {
		return nil, err
	}
	el := doc.Root().FindElement(".//PropertyGroup/" + element)
	if el == nil {
		return nil, fmt.Errorf("%w: could not find PropertyGroup/%s in %s", ErrElementNotFound, element, path)
	}
	change := &Change{Name: element, From: el.Text(), To: v}
	el.SetText(v)
	return change, save(doc, path)
}

// PackageVersions sets the Version attribute of each
// ItemGroup/PackageVersion whose Include matches a key of versions.
// All versions are validated before the file is touched. Packages missing
// from the file are skipped with a warning.
func PackageVersions(path string, versions map[string]string, log logger.Logger) ([]Change, error) {
	names := make([]string, 0, len(versions))
	for name, v := range versions {
		if err := version.CheckExtended(v); err != nil {
			return nil, fmt.Errorf("package %s: %w", name, err)
		}
		names = append(names, name)
	}
	sort.Strings(names)

	doc, err := load(path)
	if err != nil {
		return nil, err
	}

	byInclude := make(map[string]*etree.Element)
	for _, el := range doc.Root().FindElements("./ItemGroup/PackageVersion") {
		if include := el.SelectAttrValue("Include", ""); include != "" {
			if _, seen := byInclude[include]; !seen {
				byInclude[include] = el
			}
		}
	}

	var changes []Change
	for _, name := range names {
		el, ok := byInclude[name]
		if !ok {
			log.Warn("Package %s not found in %s and will be skipped", name, path)
			continue
		}
		to := versions[name]
		from := el.SelectAttrValue("Version", "")
		log.Info("Package %s: %s -> %s", name, from, to)
		el.CreateAttr("Version", to)
		changes = append(changes, Change{Name: name, From: from, To: to})
	}

	return changes, save(doc, path)
}

// WixStrings sets the text of each String element whose Id matches a key of
// values. Every id must be present.
func WixStrings(path string, values map[string]string) ([]Change, error) {
	doc, err := load(path)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(values))
	for id := range values {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	strs := doc.Root().FindElements(".//String")
	changes := make([]Change, 0, len(ids))
	for _, id := range ids {
		el := findByAttr(strs, "Id", id)
		if el == nil {
			return nil, fmt.Errorf("%w: could not find ID %s in %s", ErrElementNotFound, id, path)
		}
		changes = append(changes, Change{Name: id, From: el.Text(), To: values[id]})
		el.SetText(values[id])
	}

	return changes, save(doc, path)
}

func findByAttr(elements []*etree.Element, key, value string) *etree.Element {
	for _, el := range elements {
		if el.SelectAttrValue(key, "") == value {
			return el
		}
	}
	return nil
}
