// Package schemactx builds schema context for a query from a live
// PostgreSQL database.
//
// ExtractTables finds the tables referenced after FROM, JOIN, UPDATE and
// INTO. A Fetcher loads their columns and index definitions from a Source
// (PostgresSource uses information_schema and pg_indexes through pgx) and
// renders a compact description:
//
//	Table public.users (id integer NOT NULL, email text)
//	  Index: CREATE UNIQUE INDEX users_pkey ON public.users USING btree (id)
//
// The analyzer uses it only when a request carries no context of its own.
package schemactx
