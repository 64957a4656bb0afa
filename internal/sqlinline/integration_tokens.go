package sqlinline

// Provider API keys. A blank token counts as unset.

const QSelectProviderToken = `--sql bce778a5-6a1f-4d32-bda6-e2c4acac1cf7
select token
from integration_tokens
where provider = $1::text
  and btrim(token) <> '';
`

// Properties merge so older metadata survives a key rotation.
const QUpsertProviderToken = `--sql 5faac546-9a32-41f9-ae7c-b43b7bcc4f97
insert into integration_tokens (provider, token, properties)
values ($1::text, $2::text, coalesce($3::jsonb, '{}'::jsonb))
on conflict (provider) do update set
    token = excluded.token,
    properties = integration_tokens.properties || excluded.properties,
    updated_at = now();
`

const QDeleteProviderToken = `--sql ee8a8067-28e0-414a-81da-1fdbf17b8760
delete from integration_tokens
where provider = $1::text;
`

// Only the last four characters of each token leave the database.
const QListProviderTokens = `--sql 9697c5f0-3815-422b-a530-a5c8def27ccc
select provider, right(token, 4) as suffix, updated_at
from integration_tokens
order by provider;
`
