// Package epubio reads and writes packaged containers on disk: an
// extracted directory, a zip (.epub), or a tarball compressed with gzip
// or xz. All filesystem access goes through afero so callers can target
// an in-memory filesystem.
package epubio

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"io"
	"io/fs"
	"log/slog"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/afero"
	"github.com/ulikunitz/xz"

	"github.com/coursewright/bindery/core/container"
	"github.com/coursewright/bindery/core/errors"
	"github.com/coursewright/bindery/core/xmlutil"
)

// Format identifies the on-disk form of a container.
type Format string

// Container on-disk formats.
const (
	FormatDir   Format = "dir"
	FormatZip   Format = "zip"
	FormatTarGz Format = "tar.gz"
	FormatTarXz Format = "tar.xz"
)

// DetectFormat determines the on-disk form of path: a directory as-is,
// archives by magic bytes.
func DetectFormat(fsys afero.Fs, name string) (Format, error) {
	info, err := fsys.Stat(name)
	if err != nil {
		return "", errors.NewIO("stat", name, err)
	}
	if info.IsDir() {
		return FormatDir, nil
	}

	f, err := fsys.Open(name)
	if err != nil {
		return "", errors.NewIO("open", name, err)
	}
	defer f.Close()

	magic := make([]byte, 6)
	n, err := io.ReadFull(f, magic)
	if err != nil && err != io.ErrUnexpectedEOF {
		return "", errors.NewIO("read magic bytes", name, err)
	}
	if n < 2 {
		return "", errors.NewValidation("archive", "file too small to detect format")
	}

	switch {
	case magic[0] == 'P' && magic[1] == 'K':
		return FormatZip, nil
	case magic[0] == 0x1f && magic[1] == 0x8b:
		return FormatTarGz, nil
	case n >= 6 && magic[0] == 0xfd && magic[1] == 0x37 && magic[2] == 0x7a &&
		magic[3] == 0x58 && magic[4] == 0x5a && magic[5] == 0x00:
		return FormatTarXz, nil
	}
	return "", errors.NewUnsupported("container format", "unknown magic bytes")
}

// Read loads a container from path, auto-detecting its format, and
// rebuilds one package per manifest document the container declares.
func Read(fsys afero.Fs, name string, logger *slog.Logger) ([]*container.Package, error) {
	if logger == nil {
		logger = slog.Default()
	}

	format, err := DetectFormat(fsys, name)
	if err != nil {
		return nil, err
	}
	logger.Debug("reading container", "path", name, "format", string(format))

	var files map[string][]byte
	switch format {
	case FormatDir:
		files, err = readDir(fsys, name)
	case FormatZip:
		files, err = readZip(fsys, name)
	case FormatTarGz, FormatTarXz:
		files, err = readTar(fsys, name, format)
	}
	if err != nil {
		return nil, err
	}

	opfPaths, err := locateOPFs(files, name)
	if err != nil {
		return nil, err
	}
	pkgs := make([]*container.Package, 0, len(opfPaths))
	for _, opfPath := range opfPaths {
		opfDir := path.Dir(opfPath)
		fetch := func(href string) ([]byte, error) {
			full := path.Join(opfDir, href)
			data, ok := files[full]
			if !ok {
				return nil, errors.NewNotFound("file", full)
			}
			return data, nil
		}
		pkg, err := container.FromOPF(path.Base(opfPath), files[opfPath], fetch)
		if err != nil {
			return nil, err
		}
		pkgs = append(pkgs, pkg)
	}
	return pkgs, nil
}

// locateOPFs finds the package documents: every META-INF/container.xml
// rootfile when present, else the .opf entries in path order.
func locateOPFs(files map[string][]byte, name string) ([]string, error) {
	if data, ok := files["META-INF/container.xml"]; ok {
		doc, err := xmlutil.Parse(data)
		if err != nil {
			return nil, errors.NewParse("container.xml", name, err.Error())
		}
		rootfiles, err := doc.XPath("//rootfile")
		if err == nil {
			var paths []string
			for _, rootfile := range rootfiles {
				if full := rootfile.Attr("full-path"); full != "" {
					paths = append(paths, full)
				}
			}
			if len(paths) > 0 {
				return paths, nil
			}
		}
	}
	var candidates []string
	for candidate := range files {
		if path.Ext(candidate) == ".opf" {
			candidates = append(candidates, candidate)
		}
	}
	if len(candidates) == 0 {
		return nil, errors.NewNotFound("package document", name)
	}
	sort.Strings(candidates)
	return candidates, nil
}

func readDir(fsys afero.Fs, root string) (map[string][]byte, error) {
	files := map[string][]byte{}
	err := afero.Walk(fsys, root, func(p string, info fs.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return err
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		data, err := afero.ReadFile(fsys, p)
		if err != nil {
			return err
		}
		files[filepath.ToSlash(rel)] = data
		return nil
	})
	if err != nil {
		return nil, errors.NewIO("walk", root, err)
	}
	return files, nil
}

func readZip(fsys afero.Fs, name string) (map[string][]byte, error) {
	f, err := fsys.Open(name)
	if err != nil {
		return nil, errors.NewIO("open", name, err)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return nil, errors.NewIO("stat", name, err)
	}

	zr, err := zip.NewReader(f, info.Size())
	if err != nil {
		return nil, errors.NewParse("zip", name, err.Error())
	}
	files := map[string][]byte{}
	for _, entry := range zr.File {
		rc, err := entry.Open()
		if err != nil {
			return nil, errors.NewIO("read", entry.Name, err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, errors.NewIO("read", entry.Name, err)
		}
		files[entry.Name] = data
	}
	return files, nil
}

func readTar(fsys afero.Fs, name string, format Format) (map[string][]byte, error) {
	f, err := fsys.Open(name)
	if err != nil {
		return nil, errors.NewIO("open", name, err)
	}
	defer f.Close()

	var payload io.Reader
	if format == FormatTarXz {
		payload, err = xz.NewReader(f)
	} else {
		payload, err = gzip.NewReader(f)
	}
	if err != nil {
		return nil, errors.NewParse(string(format), name, err.Error())
	}

	files := map[string][]byte{}
	tr := tar.NewReader(payload)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.NewParse("tar", name, err.Error())
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		data, err := io.ReadAll(tr)
		if err != nil {
			return nil, errors.NewIO("read", hdr.Name, err)
		}
		files[path.Clean(hdr.Name)] = data
	}
	return files, nil
}

// Write stores the packages at path as one container. The extension
// selects the form: .epub/.zip, .tar.gz/.tgz, .tar.xz/.txz, anything
// else an extracted directory tree.
func Write(fsys afero.Fs, name string, pkgs []*container.Package, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	if len(pkgs) == 0 {
		return errors.NewValidation("packages", "nothing to write")
	}
	entries, err := containerFiles(pkgs, logger)
	if err != nil {
		return err
	}
	logger.Debug("writing container", "path", name, "files", len(entries))

	switch {
	case strings.HasSuffix(name, ".epub") || strings.HasSuffix(name, ".zip"):
		return writeZip(fsys, name, entries)
	case strings.HasSuffix(name, ".tar.gz") || strings.HasSuffix(name, ".tgz"):
		return writeTar(fsys, name, entries, FormatTarGz)
	case strings.HasSuffix(name, ".tar.xz") || strings.HasSuffix(name, ".txz"):
		return writeTar(fsys, name, entries, FormatTarXz)
	}
	return writeDir(fsys, name, entries)
}

type fileEntry struct {
	name string
	data []byte
}

// containerFiles lays the container out as (path, bytes) pairs: the
// fixed mimetype marker first, META-INF/container.xml listing one
// rootfile per package, then each package's manifest document and items
// at the paths their manifest hrefs declare. A path two packages both
// produce (a shared resource) is written once. A missing identifier is
// filled with a fresh urn:uuid.
func containerFiles(pkgs []*container.Package, logger *slog.Logger) ([]fileEntry, error) {
	opfNames := make([]string, len(pkgs))
	for i, pkg := range pkgs {
		opfNames[i] = pkg.Name
	}

	entries := []fileEntry{
		{name: "mimetype", data: []byte(container.MimetypeContents)},
		{name: "META-INF/container.xml", data: containerXML(opfNames)},
	}
	written := map[string]bool{}
	for _, pkg := range pkgs {
		metadata := pkg.Metadata.Clone()
		if metadata.GetString("identifier") == "" {
			metadata.Set("identifier", "urn:uuid:"+uuid.NewString())
		}
		stamped, err := container.NewPackage(pkg.Name, pkg.Items(), metadata)
		if err != nil {
			return nil, err
		}
		entries = append(entries, fileEntry{name: pkg.Name, data: container.BuildOPF(stamped)})
		for _, item := range pkg.Items() {
			href := container.ItemHref(item)
			if written[href] {
				logger.Debug("skipping duplicate container entry", "path", href)
				continue
			}
			written[href] = true
			entries = append(entries, fileEntry{name: href, data: item.Data})
		}
	}
	return entries, nil
}

func containerXML(opfNames []string) []byte {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <rootfiles>
`)
	for _, name := range opfNames {
		b.WriteString(`    <rootfile full-path="` + name + `" media-type="application/oebps-package+xml"/>` + "\n")
	}
	b.WriteString("  </rootfiles>\n</container>\n")
	return []byte(b.String())
}

// writeZip stores the entries as a zip. The mimetype entry goes first
// and uncompressed, as epub readers expect.
func writeZip(fsys afero.Fs, name string, entries []fileEntry) error {
	f, err := fsys.Create(name)
	if err != nil {
		return errors.NewIO("create", name, err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	for i, entry := range entries {
		method := zip.Deflate
		if i == 0 && entry.name == "mimetype" {
			method = zip.Store
		}
		w, err := zw.CreateHeader(&zip.FileHeader{Name: entry.name, Method: method})
		if err != nil {
			return errors.NewIO("write", entry.name, err)
		}
		if _, err := w.Write(entry.data); err != nil {
			return errors.NewIO("write", entry.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return errors.NewIO("close", name, err)
	}
	return nil
}

func writeTar(fsys afero.Fs, name string, entries []fileEntry, format Format) error {
	f, err := fsys.Create(name)
	if err != nil {
		return errors.NewIO("create", name, err)
	}
	defer f.Close()

	var compressor io.WriteCloser
	if format == FormatTarXz {
		compressor, err = xz.NewWriter(f)
		if err != nil {
			return errors.NewIO("compress", name, err)
		}
	} else {
		compressor = gzip.NewWriter(f)
	}

	tw := tar.NewWriter(compressor)
	for _, entry := range entries {
		hdr := &tar.Header{
			Name: entry.name,
			Mode: 0644,
			Size: int64(len(entry.data)),
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return errors.NewIO("write", entry.name, err)
		}
		if _, err := tw.Write(entry.data); err != nil {
			return errors.NewIO("write", entry.name, err)
		}
	}
	if err := tw.Close(); err != nil {
		return errors.NewIO("close", name, err)
	}
	if err := compressor.Close(); err != nil {
		return errors.NewIO("close", name, err)
	}
	return nil
}

func writeDir(fsys afero.Fs, root string, entries []fileEntry) error {
	for _, entry := range entries {
		full := filepath.Join(root, filepath.FromSlash(entry.name))
		if err := fsys.MkdirAll(filepath.Dir(full), 0755); err != nil {
			return errors.NewIO("mkdir", filepath.Dir(full), err)
		}
		if err := afero.WriteFile(fsys, full, entry.data, 0644); err != nil {
			return errors.NewIO("write", full, err)
		}
	}
	return nil
}
