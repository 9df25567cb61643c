package vector

import (
	"bytes"
	"database/sql"
	_ "embed"
	"encoding/binary"
	"errors"
	"fmt"
	"os"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/wkb"
	_ "modernc.org/sqlite"
)

// schema.sql creates the GeoPackage core tables, the default spatial
// reference systems and the terraces feature table.
//
//go:embed schema.sql
var schemaSQL string

// srsUndefinedCartesian is the GeoPackage srs_id for an unknown planar CRS.
const srsUndefinedCartesian = -1

// WriteGeoPackage writes c as a single LINESTRING layer. Any existing file
// at path is replaced.
func WriteGeoPackage(path string, c *Collection) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return err
	}
	defer db.Close()

	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	if err := writeLayer(tx, c); err != nil {
		return errors.Join(err, tx.Rollback())
	}
	return tx.Commit()
}

func writeLayer(tx *sql.Tx, c *Collection) error {
	srsID := srsUndefinedCartesian
	if c.CRS.Known() {
		srsID = c.CRS.EPSG
		wkt, ok := c.CRS.WKT()
		if !ok {
			wkt = "undefined"
		}
		_, err := tx.Exec(`
			INSERT OR IGNORE INTO gpkg_spatial_ref_sys
				(srs_name, srs_id, organization, organization_coordsys_id, definition)
			VALUES (?, ?, 'EPSG', ?, ?)
		`, c.CRS.Name(), srsID, srsID, wkt)
		if err != nil {
			return fmt.Errorf("failed to register %s: %w", c.CRS, err)
		}
	}

	var minX, minY, maxX, maxY any
	if b := c.Bounds(); b != nil {
		minX, minY, maxX, maxY = b.Min(0), b.Min(1), b.Max(0), b.Max(1)
	}
	_, err := tx.Exec(`
		INSERT INTO gpkg_contents (table_name, data_type, identifier, min_x, min_y, max_x, max_y, srs_id)
		VALUES (?, 'features', ?, ?, ?, ?, ?, ?)
	`, LayerName, LayerName, minX, minY, maxX, maxY, srsID)
	if err != nil {
		return fmt.Errorf("failed to insert contents: %w", err)
	}
	_, err = tx.Exec(`
		INSERT INTO gpkg_geometry_columns (table_name, column_name, geometry_type_name, srs_id, z, m)
		VALUES (?, 'geom', 'LINESTRING', ?, 0, 0)
	`, LayerName, srsID)
	if err != nil {
		return fmt.Errorf("failed to insert geometry column: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO terraces (geom, id, length, n_points) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, f := range c.Features {
		blob, err := gpkgGeometry(f.Line, srsID)
		if err != nil {
			return fmt.Errorf("feature %d: %w", f.ID, err)
		}
		if _, err := stmt.Exec(blob, f.ID, f.Length(), f.NumPoints()); err != nil {
			return fmt.Errorf("failed to insert feature %d: %w", f.ID, err)
		}
	}
	return nil
}

// GeoPackage binary header flags: little-endian, XY envelope.
const gpkgFlags = 0x01 | 1<<1

// gpkgGeometry encodes g as a GeoPackage geometry blob: the "GP" header with
// an XY envelope followed by little-endian WKB.
func gpkgGeometry(g *geom.LineString, srsID int) ([]byte, error) {
	var buf bytes.Buffer
	buf.Write([]byte{'G', 'P', 0, gpkgFlags})
	b := g.Bounds()
	header := []any{
		int32(srsID),
		b.Min(0), b.Max(0), b.Min(1), b.Max(1),
	}
	for _, v := range header {
		if err := binary.Write(&buf, binary.LittleEndian, v); err != nil {
			return nil, err
		}
	}
	if err := wkb.Write(&buf, binary.LittleEndian, g); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
