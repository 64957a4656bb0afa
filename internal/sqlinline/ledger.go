package sqlinline

const QInsertLedgerEntry = `--sql 3f1c7a8e-52d4-4b0e-9a61-0c7d2e5b9f14
insert into ledger_entries(id, amount, description, recorded_at)
values ($1::uuid, $2::numeric, $3::text, $4::timestamptz);
`

const QSelectLedgerMonthTotal = `--sql a94e0b27-6d1f-4c3a-8e5b-71f2d8c3a605
select coalesce(sum(amount), 0)::float8
from ledger_entries
where recorded_at >= $1::timestamptz
  and recorded_at < $2::timestamptz;
`
