package migrations

import "app/lib"

var _ = lib.RegisterMigration("202601010000_initial", func(c *lib.Ctx) {
	c.DB.Execute(`
CREATE TABLE sessions (
  id text NOT NULL PRIMARY KEY,
  fingerprint text NOT NULL DEFAULT '',
  created timestamptz NOT NULL DEFAULT now(),
  updated timestamptz NOT NULL DEFAULT now(),
  last_seen timestamptz NOT NULL DEFAULT now(),
  expires timestamptz NOT NULL,
  trial_expires timestamptz NOT NULL,
  paid bool NOT NULL DEFAULT false,
  paid_expires timestamptz,
  pay_address text NOT NULL,
  pay_salt text NOT NULL,
  pay_ref text NOT NULL,
  pay_tx text,
  pay_amount text,
  pay_received timestamptz
);
CREATE INDEX sessions_expires_idx ON sessions (expires);
CREATE INDEX sessions_paid_idx ON sessions (paid) WHERE paid;
CREATE UNIQUE INDEX sessions_pay_address_idx ON sessions (pay_address);
    `)
}, func(c *lib.Ctx) {
	c.DB.Execute(`DROP TABLE sessions;`)
})
