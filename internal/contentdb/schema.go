/*
Copyright 2026 The Robust-Cdn Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

     http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package contentdb

import "github.com/space-wizards/robust-cdn/internal/sqlitedb"

var migrations = []sqlitedb.Migration{
	{
		Name: "0001_initial",
		SQL: `
CREATE TABLE Fork (
	Id   INTEGER PRIMARY KEY,
	Name TEXT NOT NULL UNIQUE
);

CREATE TABLE ContentVersion (
	Id                 INTEGER PRIMARY KEY,
	ForkId             INTEGER NOT NULL REFERENCES Fork(Id) ON DELETE CASCADE,
	VersionName        TEXT NOT NULL,
	PublishedTime      TEXT NOT NULL,
	ManifestHash       BLOB NOT NULL,
	ManifestData       BLOB NOT NULL,
	CountDistinctBlobs INTEGER NOT NULL DEFAULT 0,
	UNIQUE(ForkId, VersionName)
);

CREATE TABLE Content (
	Id          INTEGER PRIMARY KEY,
	Hash        BLOB NOT NULL UNIQUE,
	Size        INTEGER NOT NULL,
	Compression INTEGER NOT NULL,
	Data        BLOB NOT NULL
);

CREATE TABLE ContentManifestEntry (
	VersionId   INTEGER NOT NULL REFERENCES ContentVersion(Id) ON DELETE CASCADE,
	ManifestIdx INTEGER NOT NULL,
	ContentId   INTEGER NOT NULL REFERENCES Content(Id) ON DELETE RESTRICT,
	PRIMARY KEY (VersionId, ManifestIdx)
) WITHOUT ROWID;

CREATE INDEX ContentManifestEntry_ContentId ON ContentManifestEntry(ContentId);

CREATE TABLE RequestLogBlob (
	Id   INTEGER PRIMARY KEY,
	Hash BLOB NOT NULL UNIQUE,
	Data BLOB NOT NULL
);

CREATE TABLE RequestLog (
	Id             INTEGER PRIMARY KEY,
	Time           TEXT NOT NULL,
	PreCompressed  INTEGER NOT NULL,
	StreamCompress INTEGER NOT NULL,
	Protocol       INTEGER NOT NULL,
	BytesSent      INTEGER NOT NULL,
	VersionId      INTEGER NOT NULL REFERENCES ContentVersion(Id) ON DELETE CASCADE,
	BodyBlobId     INTEGER REFERENCES RequestLogBlob(Id) ON DELETE SET NULL
);
`,
	},
}
